// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"sync"
	"weak"

	"github.com/dolthub/swiss"
)

const (
	// DefaultPoolArenaSize is the capacity of arenas created for a key
	// without recorded usage.
	DefaultPoolArenaSize = 1024 * 1024

	// MinPoolArenaSize is the smallest arena a Pool creates, so that keys
	// whose tasks allocated nothing still get a usable arena.
	MinPoolArenaSize = 4 * 1024

	// sizeWindow is the number of releases remembered per key.
	sizeWindow = 50
)

// Pool hands out private arenas, one per task, so that tasks running on
// different goroutines never share an allocator. Only the pool itself is
// synchronized.
//
// Released items are held through weak pointers: the GC can collect them at
// any time. Acquire first tries to take a strong pointer back, so the pool
// shrinks and grows with GC pressure.
type Pool struct {
	pool  []weak.Pointer[PoolItem]
	sizes *swiss.Map[uint64, *poolItemSize]
	rt    *Runtime
	mu    sync.Mutex
}

// poolItemSize remembers the peak usage of the last sizeWindow arenas
// released for a key.
type poolItemSize struct {
	peaks [sizeWindow]int
	next  int
	count int
}

func (s *poolItemSize) record(peak int) {
	s.peaks[s.next] = peak
	s.next = (s.next + 1) % sizeWindow
	s.count = min(s.count+1, sizeWindow)
}

// largest returns the largest peak in the window. Arenas cannot grow, so
// sizing them below it would fail the largest recent task.
func (s *poolItemSize) largest() int {
	largest := 0
	for _, peak := range s.peaks[:s.count] {
		largest = max(largest, peak)
	}
	return largest
}

// PoolItem is an arena over its own region.
type PoolItem struct {
	Arena  *Arena
	Key    uint64
	region *Region
}

// NewPool creates a pool whose arenas share a runtime built from opts.
func NewPool(opts ...Option) *Pool {
	return &Pool{
		sizes: swiss.NewMap[uint64, *poolItemSize](64),
		rt:    NewRuntime(opts...),
	}
}

// Acquire gets an arena from the pool or creates a new one if none are
// available. The key identifies a use case: the arena is sized from the
// peak usage previously recorded for it.
func (p *Pool) Acquire(key uint64) (*PoolItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	size := p.arenaSize(key)
	for len(p.pool) > 0 {
		lastIdx := len(p.pool) - 1
		wp := p.pool[lastIdx]
		p.pool = p.pool[:lastIdx]

		v := wp.Value()
		if v == nil {
			// collected
			continue
		}
		if v.Arena.Cap() < size {
			// too small for this key, leave it to the GC
			continue
		}
		v.Key = key
		return v, nil
	}

	region, err := NewRegion(size)
	if err != nil {
		return nil, err
	}
	p.rt.logger.Debug("memory: pool arena created", "key", key, bytesAttr("size", size))
	return &PoolItem{
		Arena:  newArenaWithRuntime(region.Bytes(), p.rt),
		Key:    key,
		region: region,
	}, nil
}

// Release returns an arena to the pool for reuse. The arena is cleared and
// every block it handed out becomes invalid.
func (p *Pool) Release(item *PoolItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release(item)
}

// ReleaseMany returns several arenas under a single lock.
func (p *Pool) ReleaseMany(items []*PoolItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range items {
		p.release(item)
	}
}

// Len returns the number of pooled items, including those the GC may
// already have collected.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pool)
}

func (p *Pool) release(item *PoolItem) {
	peak := item.Arena.Peak()
	item.Arena.Clear()
	item.Arena.peak = 0
	p.record(item.Key, peak)

	item.Key = 0
	p.pool = append(p.pool, weak.Make(item))
}

// record adds peak to the size history of key.
func (p *Pool) record(key uint64, peak int) {
	size, ok := p.sizes.Get(key)
	if !ok {
		size = &poolItemSize{}
		p.sizes.Put(key, size)
	}
	size.record(peak)
}

// arenaSize returns the largest peak recorded for key in the window, at
// least MinPoolArenaSize, or DefaultPoolArenaSize when nothing is recorded.
func (p *Pool) arenaSize(key uint64) int {
	if size, ok := p.sizes.Get(key); ok && size.count > 0 {
		return max(size.largest(), MinPoolArenaSize)
	}
	return DefaultPoolArenaSize
}
