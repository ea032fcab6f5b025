// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// IsPowerOfTwo reports whether x is a non-zero power of two.
func IsPowerOfTwo[T constraints.Unsigned](x T) bool {
	return x != 0 && x&(x-1) == 0
}

// AlignForward returns the smallest value >= addr that is a multiple of
// alignment. It panics if alignment is not a power of two.
func AlignForward[T constraints.Unsigned](addr, alignment T) T {
	if !IsPowerOfTwo(alignment) {
		panic(errors.AssertionFailedf("memory: alignment %d is not a power of two", alignment))
	}
	mask := alignment - 1
	if mod := addr & mask; mod != 0 {
		addr += alignment - mod
	}
	return addr
}

// PaddingWithHeader computes how many bytes to skip forward from addr so that
// the payload is aligned to alignment and a header of headerSize bytes,
// aligned to headerAlignment, fits immediately before the payload.
//
// The returned padding always contains the header, padding >= headerSize.
// headerSize is expected to be a multiple of headerAlignment, which holds for
// any Go struct.
func PaddingWithHeader(addr, alignment, headerSize, headerAlignment uintptr) uintptr {
	if !IsPowerOfTwo(alignment) || !IsPowerOfTwo(headerAlignment) {
		panic(errors.AssertionFailedf("memory: alignments (%d, %d) must be powers of two", alignment, headerAlignment))
	}
	align := max(alignment, headerAlignment)
	return AlignForward(addr+headerSize, align) - addr
}
