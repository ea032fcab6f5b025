// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"github.com/cockroachdb/errors"
)

// RegionAlignment is the alignment of the first byte of every Region and of
// every slice handed out by Region.Carve.
const RegionAlignment = 64

// Region is an owned block of memory: allocated once, released once. Arenas
// and stacks are built on top of slices of a region and never own it.
type Region struct {
	backing  []byte // keeps heap memory reachable, nil for mapped regions
	buf      []byte
	unmap    func([]byte) error
	released bool
}

// NewRegion allocates a size-byte region from the Go heap, aligned to
// RegionAlignment. The memory is zeroed.
func NewRegion(size int) (*Region, error) {
	if size < 0 {
		return nil, invalidArgument("region size %d is negative", size)
	}
	if size == 0 {
		return &Region{}, nil
	}
	backing := make([]byte, size+RegionAlignment-1)
	base := addressOf(backing)
	off := int(AlignForward(base, RegionAlignment) - base)
	return &Region{
		backing: backing,
		buf:     backing[off : off+size : off+size],
	}, nil
}

// NewVirtualRegion reserves a size-byte region straight from the operating
// system (anonymous private mapping). Platforms without mmap fall back to
// NewRegion.
func NewVirtualRegion(size int) (*Region, error) {
	if size < 0 {
		return nil, invalidArgument("region size %d is negative", size)
	}
	if size == 0 {
		return &Region{}, nil
	}
	return mapRegion(size)
}

// Bytes returns the whole region. It returns nil after Release.
func (r *Region) Bytes() []byte {
	if r.released {
		return nil
	}
	return r.buf
}

// Len returns the size of the region in bytes.
func (r *Region) Len() int {
	if r.released {
		return 0
	}
	return len(r.buf)
}

// Mapped reports whether the region was obtained from the operating system.
func (r *Region) Mapped() bool {
	return r.unmap != nil
}

// Carve splits the front of the region into disjoint slices of the given
// sizes, each starting on a RegionAlignment boundary. The slices can back
// independent arenas, one per goroutine.
func (r *Region) Carve(sizes ...int) ([][]byte, error) {
	if r.released {
		return nil, ErrReleased
	}
	parts := make([][]byte, 0, len(sizes))
	base := addressOf(r.buf)
	off := 0
	for _, size := range sizes {
		if size < 0 {
			return nil, invalidArgument("carve size %d is negative", size)
		}
		if len(r.buf) > 0 {
			off = int(AlignForward(base+uintptr(off), RegionAlignment) - base)
		}
		if off+size > len(r.buf) {
			return nil, errors.Wrapf(ErrOutOfMemory,
				"region of %d bytes cannot fit %d more bytes at offset %d", len(r.buf), size, off)
		}
		parts = append(parts, r.buf[off:off+size:off+size])
		off += size
	}
	return parts, nil
}

// Release gives the memory back. Any arena or stack built on the region must
// not be used afterwards. Releasing twice returns ErrReleased.
func (r *Region) Release() error {
	if r.released {
		return ErrReleased
	}
	r.released = true
	buf := r.buf
	r.backing, r.buf = nil, nil
	if r.unmap != nil && len(buf) > 0 {
		if err := r.unmap(buf); err != nil {
			return errors.Wrap(err, "memory: unmap region")
		}
	}
	return nil
}
