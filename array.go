// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"github.com/cockroachdb/errors"
)

// Array is a fixed-length array allocated once from an Allocator.
type Array[T any] struct {
	buf []T
}

// NewArray allocates a zeroed array of length elements.
func NewArray[T any](a Allocator, length int) (Array[T], error) {
	if length < 0 {
		return Array[T]{}, errors.Wrapf(ErrInvalidArgument, "negative array length %d", length)
	}
	if length == 0 {
		return Array[T]{}, nil
	}
	buf := Alloc[T](a, length)
	if buf == nil {
		return Array[T]{}, errors.Wrapf(ErrOutOfMemory, "array: unable to allocate %d elements", length)
	}
	return Array[T]{buf: buf}, nil
}

// ArrayFrom allocates an array holding a copy of items.
func ArrayFrom[T any](a Allocator, items []T) (Array[T], error) {
	arr, err := NewArray[T](a, len(items))
	if err != nil {
		return arr, err
	}
	copy(arr.buf, items)
	return arr, nil
}

// Len returns the number of elements.
func (arr Array[T]) Len() int {
	return len(arr.buf)
}

// Items returns the elements, aliasing the array storage.
func (arr Array[T]) Items() []T {
	return arr.buf
}

// At returns the element at idx.
func (arr Array[T]) At(idx int) (T, error) {
	if idx < 0 || idx >= len(arr.buf) {
		var zero T
		return zero, errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", idx, len(arr.buf))
	}
	return arr.buf[idx], nil
}

// Set overwrites the element at idx.
func (arr Array[T]) Set(idx int, v T) error {
	if idx < 0 || idx >= len(arr.buf) {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", idx, len(arr.buf))
	}
	arr.buf[idx] = v
	return nil
}
