// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"github.com/cockroachdb/errors"
)

// Arena is a linear allocator over a caller supplied buffer. Allocation
// bumps an offset forward; memory is reclaimed only all at once, with Clear,
// or back to a saved point, with a Scratch or a Checkpoint.
//
// The arena does not own its buffer. It is not safe for concurrent use.
type Arena struct {
	buf    []byte
	offset int
	peak   int
	rt     *Runtime
}

var _ Allocator = (*Arena)(nil)

// NewArena creates an arena managing buf.
func NewArena(buf []byte, opts ...Option) *Arena {
	return &Arena{
		buf: buf[:len(buf):len(buf)],
		rt:  NewRuntime(opts...),
	}
}

func newArenaWithRuntime(buf []byte, rt *Runtime) *Arena {
	return &Arena{buf: buf[:len(buf):len(buf)], rt: rt}
}

// AllocAlign satisfies the Allocator interface.
func (a *Arena) AllocAlign(size, alignment int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if size < 0 {
		return nil, a.rt.fatal(invalidArgument("arena: negative allocation size %d", size))
	}
	if err := a.rt.validAlignment(alignment); err != nil {
		return nil, err
	}
	if len(a.buf) == 0 {
		return nil, a.outOfMemory(size, alignment)
	}

	base := addressOf(a.buf)
	start := int(AlignForward(base+uintptr(a.offset), uintptr(alignment)) - base)
	if start > len(a.buf) || size > len(a.buf)-start {
		return nil, a.outOfMemory(size, alignment)
	}
	a.commit(start + size)

	block := a.buf[start : start+size : start+size]
	MemorySet(block, 0)
	return block, nil
}

// ReallocAlign satisfies the Allocator interface. The current size of block is
// len(block). When block is the last allocation its end is moved in place,
// growing or shrinking; otherwise a new block is allocated and the old one is
// abandoned until the arena is cleared or restored below it.
//
// A zero newSize or an empty block is a caller bug: use AllocAlign for fresh
// allocations.
func (a *Arena) ReallocAlign(block []byte, newSize, alignment int) ([]byte, error) {
	if len(a.buf) == 0 {
		return nil, a.outOfMemory(newSize, alignment)
	}
	if newSize <= 0 {
		return nil, a.rt.fatal(invalidArgument(
			"arena: reallocation of a %d byte block to %d bytes", len(block), newSize))
	}
	if len(block) == 0 {
		return nil, a.rt.fatal(invalidArgument(
			"arena: reallocation of an empty block, use AllocAlign for new blocks"))
	}

	start, err := a.blockOffset(block)
	if err != nil {
		return nil, err
	}
	currentSize := len(block)
	if currentSize > a.offset-start {
		return nil, a.rt.memoryError(
			errors.Wrapf(ErrOutOfDomain, "arena: block of %d bytes at offset %d runs past the watermark %d",
				currentSize, start, a.offset))
	}

	if start+currentSize == a.offset {
		if newSize > len(a.buf)-start {
			return nil, a.rt.memoryError(
				errors.Wrapf(ErrOutOfMemory, "arena: unable to reallocate block from %d to %d bytes",
					currentSize, newSize),
				bytesAttr("remaining", a.Remaining()))
		}
		a.offset = start
		a.commit(start + newSize)
		if newSize > currentSize {
			MemorySet(a.buf[start+currentSize:start+newSize], 0)
		}
		return a.buf[start : start+newSize : start+newSize], nil
	}

	moved, err := a.AllocAlign(newSize, alignment)
	if err != nil {
		return nil, err
	}
	a.rt.copy(moved, block)
	return moved, nil
}

// Clear satisfies the Allocator interface.
func (a *Arena) Clear() {
	a.offset = 0
}

// Offset returns the watermark: the first byte not yet handed out.
func (a *Arena) Offset() int {
	return a.offset
}

// Len satisfies the Allocator interface.
func (a *Arena) Len() int {
	return a.offset
}

// Cap satisfies the Allocator interface.
func (a *Arena) Cap() int {
	return len(a.buf)
}

// Peak satisfies the Allocator interface.
func (a *Arena) Peak() int {
	return a.peak
}

// Remaining returns the number of bytes above the watermark.
func (a *Arena) Remaining() int {
	return len(a.buf) - a.offset
}

// Stats returns a snapshot of the arena usage.
func (a *Arena) Stats() Stats {
	return newStats(a.offset, len(a.buf), a.peak, 0)
}

func (a *Arena) commit(offset int) {
	a.offset = offset
	if offset > a.peak {
		a.peak = offset
	}
}

// blockOffset validates that block starts inside the live part of the arena
// and returns its offset from the start of the buffer.
func (a *Arena) blockOffset(block []byte) (int, error) {
	base, addr := addressOf(a.buf), addressOf(block)
	if addr < base || addr >= base+uintptr(len(a.buf)) {
		return 0, a.rt.memoryError(
			errors.Wrap(ErrOutOfDomain, "arena: reallocation of a block outside of the arena"))
	}
	start := int(addr - base)
	if start >= a.offset {
		return 0, a.rt.memoryError(
			errors.Wrapf(ErrFreedBlock, "arena: block at offset %d is above the watermark %d", start, a.offset))
	}
	return start, nil
}

func (a *Arena) outOfMemory(size, alignment int) error {
	return a.rt.memoryError(
		errors.Wrapf(ErrOutOfMemory, "arena: unable to allocate %d bytes aligned to %d", size, alignment),
		bytesAttr("requested", size),
		bytesAttr("remaining", a.Remaining()),
	)
}
