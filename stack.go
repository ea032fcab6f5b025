// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// StackHeader precedes every block of a Stack.
//
//	               PreviousOffset                 |- Capacity -|
//	                     |                        |            |
//	|previous header|previous block|++++|header|    block     |
//	                               |-- Padding --|
type StackHeader struct {
	// Padding is the number of bytes between the end of the previous block and
	// the start of this block. It accounts for the header itself.
	Padding int
	// Capacity is the size of the block in bytes.
	Capacity int
	// PreviousOffset is the offset of the block that was on top before this
	// one was allocated. Zero means this block is the bottom of the stack.
	PreviousOffset int
}

const (
	headerSize      = int(unsafe.Sizeof(StackHeader{}))
	headerAlignment = int(unsafe.Alignof(StackHeader{}))
)

// Stack is a LIFO allocator over a caller supplied buffer. Each block is
// preceded by a StackHeader, chaining blocks back to the bottom of the stack,
// so blocks of any size can be popped in reverse allocation order.
//
// The stack does not own its buffer. It is not safe for concurrent use.
type Stack struct {
	buf            []byte
	offset         int // first free byte
	previousOffset int // offset of the top block, zero when empty
	depth          int
	peak           int
	rt             *Runtime
}

var _ Allocator = (*Stack)(nil)

// NewStack creates a stack managing buf.
func NewStack(buf []byte, opts ...Option) *Stack {
	return newStackWithRuntime(buf, NewRuntime(opts...))
}

func newStackWithRuntime(buf []byte, rt *Runtime) *Stack {
	return &Stack{buf: buf[:len(buf):len(buf)], rt: rt}
}

// AllocAlign satisfies the Allocator interface. The block is preceded by its
// header and aligned to at least the header alignment.
func (s *Stack) AllocAlign(size, alignment int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if size < 0 {
		return nil, s.rt.fatal(invalidArgument("stack: negative allocation size %d", size))
	}
	if err := s.rt.validAlignment(alignment); err != nil {
		return nil, err
	}

	free := addressOf(s.buf) + uintptr(s.offset)
	padding := int(PaddingWithHeader(free, uintptr(alignment), uintptr(headerSize), uintptr(headerAlignment)))
	if free := len(s.buf) - s.offset; len(s.buf) == 0 || padding > free || size > free-padding {
		return nil, s.rt.memoryError(
			errors.Wrapf(ErrOutOfMemory, "stack: unable to allocate %d bytes aligned to %d", size, alignment),
			bytesAttr("requested", size),
			bytesAttr("padding", padding),
			bytesAttr("remaining", s.Remaining()),
		)
	}

	start := s.offset + padding
	*s.headerAt(start) = StackHeader{
		Padding:        padding,
		Capacity:       size,
		PreviousOffset: s.previousOffset,
	}
	s.previousOffset = start
	s.depth++
	s.commit(start + size)

	block := s.buf[start : start+size : start+size]
	MemorySet(block, 0)
	return block, nil
}

// ReallocAlign satisfies the Allocator interface. The current size is read
// from the block header, not from len(block). The top block is resized in
// place; any other live block is copied to a new block on top of the stack and
// the old one stays allocated until the stack is unwound past it.
//
// A zero newSize frees block and everything above it, see ClearAt.
func (s *Stack) ReallocAlign(block []byte, newSize, alignment int) ([]byte, error) {
	if newSize == 0 {
		return nil, s.ClearAt(block)
	}
	if newSize < 0 {
		return nil, s.rt.fatal(invalidArgument("stack: negative reallocation size %d", newSize))
	}
	if len(block) == 0 && unsafe.SliceData(block) == nil {
		return nil, s.rt.fatal(invalidArgument(
			"stack: reallocation of a nil block, use AllocAlign for new blocks"))
	}

	start, err := s.blockOffset(block)
	if err != nil {
		return nil, err
	}
	header, err := s.validHeader(start)
	if err != nil {
		return nil, err
	}

	if start == s.previousOffset {
		if newSize > header.Capacity && newSize > len(s.buf)-start {
			return nil, s.rt.memoryError(
				errors.Wrapf(ErrOutOfMemory, "stack: unable to grow top block from %d to %d bytes",
					header.Capacity, newSize),
				bytesAttr("remaining", s.Remaining()),
			)
		}
		if newSize > header.Capacity {
			MemorySet(s.buf[start+header.Capacity:start+newSize], 0)
		}
		header.Capacity = newSize
		s.offset = start
		s.commit(start + newSize)
		return s.buf[start : start+newSize : start+newSize], nil
	}

	keep := min(header.Capacity, newSize, s.offset-start)
	moved, err := s.AllocAlign(newSize, alignment)
	if err != nil {
		return nil, err
	}
	s.rt.copy(moved, s.buf[start:start+keep])
	return moved, nil
}

// Pop frees the top block. It returns ErrEmptyStack if there is none.
func (s *Stack) Pop() error {
	if s.previousOffset == 0 {
		return ErrEmptyStack
	}
	s.popTop()
	return nil
}

// ClearAt frees block and every block allocated after it, popping from the top
// until block has been freed.
//
// block must be a block returned by this stack. A pointer that lies in the
// live part of the buffer but is not the start of a block cannot be told apart
// up front: the walk then empties the whole stack and ErrForeignBlock is
// returned. Blocks outside of the buffer or already freed are rejected without
// touching the stack.
func (s *Stack) ClearAt(block []byte) error {
	if len(block) == 0 && unsafe.SliceData(block) == nil {
		return errors.Wrap(ErrInvalidArgument, "stack: clear at a nil block")
	}
	start, err := s.blockOffset(block)
	if err != nil {
		return err
	}
	if _, found := s.unwindTo(start); !found {
		s.rt.logger.Warn("stack: clear reached the bottom without meeting the block, stack emptied",
			"offset", start)
		return errors.Wrapf(ErrForeignBlock, "stack: no block starts at offset %d", start)
	}
	return nil
}

// Clear satisfies the Allocator interface.
func (s *Stack) Clear() {
	s.offset = 0
	s.previousOffset = 0
	s.depth = 0
}

// Top returns the top block, or nil if the stack is empty.
func (s *Stack) Top() []byte {
	if s.previousOffset == 0 {
		return nil
	}
	h := s.headerAt(s.previousOffset)
	return s.buf[s.previousOffset : s.previousOffset+h.Capacity : s.previousOffset+h.Capacity]
}

// TopHeader returns a copy of the header of the top block.
func (s *Stack) TopHeader() (StackHeader, bool) {
	if s.previousOffset == 0 {
		return StackHeader{}, false
	}
	return *s.headerAt(s.previousOffset), true
}

// TopSize returns the size of the top block, zero if the stack is empty.
func (s *Stack) TopSize() int {
	h, _ := s.TopHeader()
	return h.Capacity
}

// TopPreviousOffset returns the offset of the block below the top one.
func (s *Stack) TopPreviousOffset() int {
	h, _ := s.TopHeader()
	return h.PreviousOffset
}

// HeaderOf returns a copy of the header of a live block.
func (s *Stack) HeaderOf(block []byte) (StackHeader, error) {
	start, err := s.blockOffset(block)
	if err != nil {
		return StackHeader{}, err
	}
	h, err := s.validHeader(start)
	if err != nil {
		return StackHeader{}, err
	}
	return *h, nil
}

// SizeOf returns the size recorded in the header of a live block.
func (s *Stack) SizeOf(block []byte) (int, error) {
	h, err := s.HeaderOf(block)
	return h.Capacity, err
}

// PreviousOffsetOf returns the offset of the block allocated right before block.
func (s *Stack) PreviousOffsetOf(block []byte) (int, error) {
	h, err := s.HeaderOf(block)
	return h.PreviousOffset, err
}

// OffsetOf returns the offset of block from the start of the stack buffer.
func (s *Stack) OffsetOf(block []byte) (int, error) {
	return s.blockOffset(block)
}

// Offset returns the offset of the first free byte.
func (s *Stack) Offset() int {
	return s.offset
}

// PreviousOffset returns the offset of the top block, zero when empty.
func (s *Stack) PreviousOffset() int {
	return s.previousOffset
}

// Depth returns the number of live blocks.
func (s *Stack) Depth() int {
	return s.depth
}

// Len satisfies the Allocator interface.
func (s *Stack) Len() int {
	return s.offset
}

// Cap satisfies the Allocator interface.
func (s *Stack) Cap() int {
	return len(s.buf)
}

// Peak satisfies the Allocator interface.
func (s *Stack) Peak() int {
	return s.peak
}

// Remaining returns the number of free bytes above the top block.
func (s *Stack) Remaining() int {
	return len(s.buf) - s.offset
}

// Stats returns a snapshot of the stack usage.
func (s *Stack) Stats() Stats {
	return newStats(s.offset, len(s.buf), s.peak, s.depth)
}

func (s *Stack) commit(offset int) {
	s.offset = offset
	if offset > s.peak {
		s.peak = offset
	}
}

// popTop frees the top block, the stack must not be empty.
func (s *Stack) popTop() {
	h := s.headerAt(s.previousOffset)
	s.offset = s.previousOffset - h.Padding
	s.previousOffset = h.PreviousOffset
	s.depth--
}

// unwindTo pops blocks until the block at start has been popped or the stack
// is empty. It returns how many blocks were popped and whether start was met.
func (s *Stack) unwindTo(start int) (popped int, found bool) {
	for s.previousOffset != 0 {
		top := s.previousOffset
		s.popTop()
		popped++
		if top == start {
			return popped, true
		}
	}
	return popped, false
}

// headerAt returns the header stored right before the block at offset start.
func (s *Stack) headerAt(start int) *StackHeader {
	return (*StackHeader)(unsafe.Pointer(&s.buf[start-headerSize]))
}

// validHeader returns the header of the block at start after checking that
// it describes a block lying between its predecessor and the watermark. A
// pointer into the middle of a block reads payload bytes as a header and
// fails here.
func (s *Stack) validHeader(start int) (*StackHeader, error) {
	h := s.headerAt(start)
	if h.Padding < headerSize || h.Padding > start ||
		h.Capacity < 0 || h.Capacity > s.offset-start ||
		h.PreviousOffset < 0 || h.PreviousOffset >= start {
		return nil, s.rt.memoryError(
			errors.Wrapf(ErrOutOfDomain, "stack: no valid block header before offset %d", start))
	}
	return h, nil
}

// blockOffset validates that block starts in the live part of the stack and
// returns its offset from the start of the buffer.
func (s *Stack) blockOffset(block []byte) (int, error) {
	base, addr := addressOf(s.buf), addressOf(block)
	if addr < base || addr >= base+uintptr(len(s.buf)) {
		return 0, s.rt.memoryError(
			errors.Wrap(ErrOutOfDomain, "stack: block outside of the stack buffer"))
	}
	start := int(addr - base)
	if start > s.previousOffset || s.previousOffset == 0 {
		return 0, s.rt.memoryError(
			errors.Wrapf(ErrFreedBlock, "stack: block at offset %d is above the top block at %d",
				start, s.previousOffset))
	}
	if start < headerSize {
		return 0, s.rt.memoryError(
			errors.Wrapf(ErrOutOfDomain, "stack: block at offset %d leaves no room for its header", start))
	}
	return start, nil
}
