// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"math"
	"unsafe"
)

// Allocator is the narrow interface containers allocate through. It is
// implemented by *Arena, *Stack and *Manager.
type Allocator interface {
	// AllocAlign returns a zeroed block of size bytes whose first byte is
	// aligned to alignment. A zero size returns a nil block and no error.
	AllocAlign(size, alignment int) ([]byte, error)

	// ReallocAlign resizes block to newSize bytes, in place when block is the
	// most recent allocation, otherwise by moving its contents to a new block.
	ReallocAlign(block []byte, newSize, alignment int) ([]byte, error)

	// Clear drops every allocation at once.
	// After invoking this method any block previously returned becomes immediately invalid.
	Clear()

	// Len returns the number of bytes currently in use, padding included.
	Len() int

	// Cap returns the number of bytes the allocator manages.
	Cap() int

	// Peak returns the high-water mark of Len. It is not reset by Clear.
	Peak() int
}

// New allocates a zeroed T from the allocator and returns a pointer to it.
// If a is nil it falls back to Go's built-in new. It returns nil if the
// allocator is out of memory.
//
// T must not contain Go pointers: the garbage collector does not scan
// allocator memory.
func New[T any](a Allocator) *T {
	if a == nil {
		return new(T)
	}
	var x T
	b, err := a.AllocAlign(int(unsafe.Sizeof(x)), int(unsafe.Alignof(x)))
	if err != nil || len(b) == 0 {
		return nil
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(b)))
}

// Alloc allocates a zeroed slice of count elements of type T. It returns nil
// when count is zero or the allocator cannot satisfy the request (the failure
// has already been logged by the allocator).
func Alloc[T any](a Allocator, count int) []T {
	if count <= 0 {
		return nil
	}
	size, alignment, ok := sizeOf[T](count)
	if !ok {
		return nil
	}
	if a == nil {
		return make([]T, count)
	}
	b, err := a.AllocAlign(size, alignment)
	if err != nil || len(b) == 0 {
		return nil
	}
	return bytesAs[T](b, count)
}

// Realloc resizes a block previously returned by Alloc to newCount elements.
// A nil block is allocated fresh. It returns nil on failure, in which case
// block is left untouched.
func Realloc[T any](a Allocator, block []T, newCount int) []T {
	if len(block) == 0 {
		return Alloc[T](a, newCount)
	}
	if a == nil {
		s := make([]T, newCount)
		copy(s, block)
		return s
	}
	size, alignment, ok := sizeOf[T](newCount)
	if !ok {
		return nil
	}
	b, err := a.ReallocAlign(asBytes(block), size, alignment)
	if err != nil || len(b) == 0 {
		return nil
	}
	return bytesAs[T](b, newCount)
}

// sizeOf returns the byte size and alignment of count elements of T. ok is
// false when the size does not fit in an int.
func sizeOf[T any](count int) (size, alignment int, ok bool) {
	var x T
	elem := int(unsafe.Sizeof(x))
	if elem > 0 && count > math.MaxInt/elem {
		return 0, 0, false
	}
	return elem * count, int(unsafe.Alignof(x)), true
}

// asBytes views the elements of s as raw bytes.
func asBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var x T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(x)))
}

// bytesAs views b as count elements of T. b must be large enough and aligned for T.
func bytesAs[T any](b []byte, count int) []T {
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), count)
}
