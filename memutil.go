// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"unsafe"
)

// addressOf returns the address of the first byte of b, or 0 for a nil slice.
func addressOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// Overlaps reports whether the byte ranges of a and b share at least one byte.
func Overlaps(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	pa, pb := addressOf(a), addressOf(b)
	return pa < pb+uintptr(len(b)) && pb < pa+uintptr(len(a))
}

// MemoryCopy copies min(len(dst), len(src)) bytes from src to dst and returns
// the number of bytes copied. The regions must not overlap; overlapping
// arguments panic with ErrOverlap. Nil or empty arguments are a no-op.
func MemoryCopy(dst, src []byte) int {
	if len(dst) == 0 || len(src) == 0 {
		return 0
	}
	if Overlaps(dst, src) {
		panic(ErrOverlap)
	}
	return copy(dst, src)
}

// MemoryMove copies min(len(dst), len(src)) bytes from src to dst, handling
// overlapping regions. Nil or empty arguments are a no-op.
func MemoryMove(dst, src []byte) int {
	if len(dst) == 0 || len(src) == 0 {
		return 0
	}
	return copy(dst, src)
}

// MemorySet fills buf with fill. A nil or empty buf is a no-op.
func MemorySet(buf []byte, fill byte) {
	if len(buf) == 0 {
		return
	}
	if fill == 0 {
		// Lowered to runtime.memclrNoHeapPointers by the compiler.
		for i := range buf {
			buf[i] = 0
		}
		return
	}
	buf[0] = fill
	for filled := 1; filled < len(buf); filled *= 2 {
		copy(buf[filled:], buf[:filled])
	}
}
