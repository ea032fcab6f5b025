// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"github.com/cockroachdb/errors"
)

const growThreshold = 256

// AllocateSlice creates a slice of type T with a given length and capacity,
// using the provided Allocator for memory allocation.
// If the allocator is nil, it returns a slice using Go's built-in make function.
// It returns nil if the allocator cannot satisfy the request.
func AllocateSlice[T any](a Allocator, len, cap int) []T {
	if a == nil {
		return make([]T, len, cap)
	}
	s := Alloc[T](a, cap)
	if s == nil {
		return nil
	}
	return s[:len]
}

// SliceAppend appends elements to a slice of type T using a provided Allocator
// for memory allocation if needed. s must be nil or a slice obtained from a,
// with its full capacity. When s is the most recent allocation of
// the allocator it grows in place. On failure s is returned unchanged together
// with the allocator error.
func SliceAppend[T any](a Allocator, s []T, data ...T) ([]T, error) {
	if a == nil {
		return append(s, data...), nil
	}
	grown, err := growSlice(a, s, len(data))
	if err != nil {
		return s, err
	}
	return append(grown, data...), nil
}

// growSlice makes room for dataLen more elements.
func growSlice[T any](a Allocator, s []T, dataLen int) ([]T, error) {
	newLen := len(s) + dataLen
	newCap := cap(s)
	if newLen <= newCap {
		return s, nil
	}

	if newCap > 0 {
		for newLen > newCap {
			if newCap < growThreshold {
				newCap *= 2
			} else {
				newCap += newCap / 4
			}
			if newCap <= 0 {
				newCap = newLen
				break
			}
		}
	} else {
		newCap = dataLen
	}
	return resizeSlice(a, s, newCap)
}

// resizeSlice moves s to a block of newCap elements, keeping its length.
func resizeSlice[T any](a Allocator, s []T, newCap int) ([]T, error) {
	size, align, ok := sizeOf[T](newCap)
	if !ok {
		return nil, errors.Wrapf(ErrOutOfMemory, "slice of %d elements does not fit in memory", newCap)
	}
	var (
		b   []byte
		err error
	)
	if cap(s) == 0 {
		b, err = a.AllocAlign(size, align)
	} else {
		b, err = a.ReallocAlign(asBytes(s[:cap(s)]), size, align)
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.Wrapf(ErrOutOfMemory, "unable to grow slice to %d elements", newCap)
	}
	return bytesAs[T](b, newCap)[:min(len(s), newCap)], nil
}
