// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"github.com/cockroachdb/errors"
)

const (
	// DynArrayDefaultCapacity is the capacity of a DynArray grown from nothing.
	DynArrayDefaultCapacity = 4
	// DynArrayGrowthFactor multiplies the capacity each time a DynArray is full.
	DynArrayGrowthFactor = 2
)

// ErrIndexOutOfRange is returned by DynArray and Array accessors.
var ErrIndexOutOfRange = errors.New("memory: index out of range")

// DynArray is a growable array whose storage comes from an Allocator. Growth
// reallocates through the allocator, in place when the array storage is the
// allocator's most recent block.
type DynArray[T any] struct {
	alloc Allocator
	buf   []T // len(buf) is the capacity, items are buf[:size]
	size  int
}

// NewDynArray creates an empty array with room for capacity elements.
func NewDynArray[T any](a Allocator, capacity int) (*DynArray[T], error) {
	d := &DynArray[T]{alloc: a}
	if capacity > 0 {
		if err := d.Resize(capacity); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// DynArrayFrom creates an array holding a copy of items. The capacity is
// twice the number of items unless a larger capacity is given.
func DynArrayFrom[T any](a Allocator, items []T, capacity int) (*DynArray[T], error) {
	if capacity < len(items) {
		capacity = DynArrayGrowthFactor * len(items)
	}
	d, err := NewDynArray[T](a, capacity)
	if err != nil {
		return nil, err
	}
	d.size = copy(d.buf, items)
	return d, nil
}

// Len returns the number of elements.
func (d *DynArray[T]) Len() int {
	return d.size
}

// Cap returns the number of elements the array holds before growing.
func (d *DynArray[T]) Cap() int {
	return len(d.buf)
}

// Items returns the elements. The slice aliases the array storage and is
// valid until the next growth.
func (d *DynArray[T]) Items() []T {
	return d.buf[:d.size:d.size]
}

// At returns the element at idx.
func (d *DynArray[T]) At(idx int) (T, error) {
	if idx < 0 || idx >= d.size {
		var zero T
		return zero, errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", idx, d.size)
	}
	return d.buf[idx], nil
}

// Set overwrites the element at idx.
func (d *DynArray[T]) Set(idx int, v T) error {
	if idx < 0 || idx >= d.size {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", idx, d.size)
	}
	d.buf[idx] = v
	return nil
}

// Peek returns the last element.
func (d *DynArray[T]) Peek() (T, bool) {
	if d.size == 0 {
		var zero T
		return zero, false
	}
	return d.buf[d.size-1], true
}

// Push appends v, growing the array if it is full.
func (d *DynArray[T]) Push(v T) error {
	if d.size == len(d.buf) {
		if err := d.grow(d.size + 1); err != nil {
			return err
		}
	}
	d.buf[d.size] = v
	d.size++
	return nil
}

// PushSlice appends every element of items.
func (d *DynArray[T]) PushSlice(items []T) error {
	if len(items) == 0 {
		return nil
	}
	if d.size+len(items) > len(d.buf) {
		if err := d.grow(d.size + len(items)); err != nil {
			return err
		}
	}
	d.size += copy(d.buf[d.size:], items)
	return nil
}

// Pop removes the last element.
func (d *DynArray[T]) Pop() error {
	if d.size == 0 {
		return errors.Wrap(ErrIndexOutOfRange, "pop from an empty array")
	}
	d.size--
	var zero T
	d.buf[d.size] = zero
	return nil
}

// Remove deletes the element at idx, shifting the following ones down.
func (d *DynArray[T]) Remove(idx int) error {
	if idx < 0 || idx >= d.size {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", idx, d.size)
	}
	copy(d.buf[idx:], d.buf[idx+1:d.size])
	d.size--
	var zero T
	d.buf[d.size] = zero
	return nil
}

// Resize changes the capacity to exactly capacity elements, dropping the
// elements that no longer fit. The array is unchanged on failure.
func (d *DynArray[T]) Resize(capacity int) error {
	if capacity < 0 {
		return errors.Wrapf(ErrInvalidArgument, "negative capacity %d", capacity)
	}
	if capacity == len(d.buf) {
		return nil
	}
	if capacity == 0 {
		d.buf, d.size = nil, 0
		return nil
	}
	if d.alloc == nil {
		buf := make([]T, capacity)
		copy(buf, d.buf)
		d.buf = buf
	} else {
		buf, err := resizeSlice(d.alloc, d.buf[:0:len(d.buf)], capacity)
		if err != nil {
			return errors.Wrapf(err, "dynarray: resize from %d to %d elements", len(d.buf), capacity)
		}
		d.buf = buf[:capacity]
	}
	d.size = min(d.size, capacity)
	return nil
}

// Clear removes every element, keeping the capacity.
func (d *DynArray[T]) Clear() {
	clear(d.buf[:d.size])
	d.size = 0
}

func (d *DynArray[T]) grow(needed int) error {
	capacity := len(d.buf)
	if capacity == 0 {
		capacity = DynArrayDefaultCapacity
	}
	for capacity < needed {
		capacity *= DynArrayGrowthFactor
	}
	return d.Resize(capacity)
}
