// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"github.com/cockroachdb/errors"
)

// Manager owns one region of memory and hands it out in stack order. It is
// meant to be the central memory resource of an application: arenas for
// subsystems are minted from it with MakeArena, and their lifetime is bounded
// by the manager's own stack discipline.
type Manager struct {
	region          *Region
	stack           *Stack
	allocationCount int
	rt              *Runtime
}

var _ Allocator = (*Manager)(nil)

// NewManager reserves capacity bytes, from the Go heap or, with
// WithVirtualMemory, from the operating system.
func NewManager(capacity int, opts ...Option) (*Manager, error) {
	rt := NewRuntime(opts...)
	var (
		region *Region
		err    error
	)
	if rt.virtualMemory {
		region, err = NewVirtualRegion(capacity)
	} else {
		region, err = NewRegion(capacity)
	}
	if err != nil {
		return nil, err
	}
	rt.logger.Debug("memory: manager initialized",
		bytesAttr("capacity", capacity), "mapped", region.Mapped())
	return &Manager{
		region: region,
		stack:  newStackWithRuntime(region.Bytes(), rt),
		rt:     rt,
	}, nil
}

// AllocAlign satisfies the Allocator interface.
func (m *Manager) AllocAlign(size, alignment int) ([]byte, error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	block, err := m.stack.AllocAlign(size, alignment)
	if err == nil && block != nil {
		m.allocationCount++
	}
	return block, err
}

// ReallocAlign satisfies the Allocator interface. Moving a block to a new
// location counts as an allocation; the old block stays on the stack.
func (m *Manager) ReallocAlign(block []byte, newSize, alignment int) ([]byte, error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	if newSize == 0 {
		return nil, m.ClearUntil(block)
	}
	moved, err := m.stack.ReallocAlign(block, newSize, alignment)
	if err == nil && addressOf(moved) != addressOf(block) {
		m.allocationCount++
	}
	return moved, err
}

// MakeArena carves an arena of size bytes out of the manager. The arena
// backing store is a single block of the manager's stack: popping it, or
// clearing below it, invalidates the arena.
func (m *Manager) MakeArena(size int) (*Arena, error) {
	if size <= 0 {
		return nil, m.rt.fatal(invalidArgument("manager: arena size %d must be positive", size))
	}
	block, err := m.AllocAlign(size, RegionAlignment)
	if err != nil {
		return nil, errors.Wrap(err, "manager: make arena")
	}
	return newArenaWithRuntime(block, m.rt), nil
}

// Pop frees the most recent allocation.
func (m *Manager) Pop() error {
	if err := m.live(); err != nil {
		return err
	}
	if err := m.stack.Pop(); err != nil {
		return err
	}
	m.allocationCount--
	return nil
}

// ClearUntil frees block and every allocation made after it. It has the same
// foreign pointer hazard as Stack.ClearAt.
func (m *Manager) ClearUntil(block []byte) error {
	if err := m.live(); err != nil {
		return err
	}
	if len(block) == 0 && addressOf(block) == 0 {
		return errors.Wrap(ErrInvalidArgument, "manager: clear until a nil block")
	}
	start, err := m.stack.blockOffset(block)
	if err != nil {
		return err
	}
	popped, found := m.stack.unwindTo(start)
	m.allocationCount -= popped
	if !found {
		m.rt.logger.Warn("manager: clear reached the bottom without meeting the block, manager emptied",
			"offset", start)
		return errors.Wrapf(ErrForeignBlock, "manager: no block starts at offset %d", start)
	}
	return nil
}

// Clear satisfies the Allocator interface, zeroing offsets and counters.
func (m *Manager) Clear() {
	m.allocationCount = 0
	m.stack.Clear()
}

// AllocationCount returns the number of live allocations.
func (m *Manager) AllocationCount() int {
	return m.allocationCount
}

// Stack exposes the underlying stack allocator for introspection.
func (m *Manager) Stack() *Stack {
	return m.stack
}

// Len satisfies the Allocator interface.
func (m *Manager) Len() int {
	return m.stack.Len()
}

// Cap satisfies the Allocator interface.
func (m *Manager) Cap() int {
	return m.stack.Cap()
}

// Peak satisfies the Allocator interface.
func (m *Manager) Peak() int {
	return m.stack.Peak()
}

// Stats returns a snapshot of the manager usage.
func (m *Manager) Stats() Stats {
	return newStats(m.stack.Len(), m.stack.Cap(), m.stack.Peak(), m.allocationCount)
}

// Release gives the managed region back. Arenas minted by the manager must
// not be used afterwards.
func (m *Manager) Release() error {
	if err := m.region.Release(); err != nil {
		return err
	}
	m.rt.logger.Debug("memory: manager released", "stats", m.Stats().String())
	m.stack = newStackWithRuntime(nil, m.rt)
	m.allocationCount = 0
	return nil
}

func (m *Manager) live() error {
	if m.region.released {
		return ErrReleased
	}
	return nil
}
