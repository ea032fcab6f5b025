// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// heapAllocator is a trivial Allocator backed by make, every block is fresh.
type heapAllocator struct {
	used int
}

func (h *heapAllocator) AllocAlign(size, _ int) ([]byte, error) {
	h.used += size
	return make([]byte, size), nil
}

func (h *heapAllocator) ReallocAlign(block []byte, newSize, alignment int) ([]byte, error) {
	b, _ := h.AllocAlign(newSize, alignment)
	copy(b, block)
	return b, nil
}

func (h *heapAllocator) Clear() {
	h.used = 0
}

func (h *heapAllocator) Len() int {
	return h.used
}

func (h *heapAllocator) Cap() int {
	return int(^uintptr(0) >> 1)
}

func (h *heapAllocator) Peak() int {
	return h.used
}

// TestSliceAppendWithAllocator tests the SliceAppend function using a heapAllocator.
func TestSliceAppendWithAllocator(t *testing.T) {
	a := &heapAllocator{}

	s := AllocateSlice[int](a, 3, 3)
	s[0] = 1
	s[1] = 2
	s[2] = 3

	result, err := SliceAppend(a, s, 4, 5)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5}, result)
}

func TestSliceAppendNilAllocator(t *testing.T) {
	s := AllocateSlice[int](nil, 0, 2)
	result, err := SliceAppend(nil, s, 1, 2, 3)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, result)
}

func TestSliceAppendGrowsInPlace(t *testing.T) {
	a := newTestArena(t, 4096)

	var s []uint64
	s, err := SliceAppend(a, s, 1)
	require.NoError(t, err)
	first := addressOf(asBytes(s))

	for i := uint64(2); i <= 100; i++ {
		s, err = SliceAppend(a, s, i)
		require.NoError(t, err)
	}
	require.Len(t, s, 100)
	require.Equal(t, first, addressOf(asBytes(s)))
	require.Equal(t, uint64(100), s[99])
	require.Equal(t, 8*cap(s), a.Offset())
}

func TestSliceAppendMoves(t *testing.T) {
	a := newTestArena(t, 4096)

	s := AllocateSlice[uint32](a, 0, 2)
	s, err := SliceAppend(a, s, 7, 8)
	require.NoError(t, err)
	before := addressOf(asBytes(s))
	_, err = a.AllocAlign(8, 8)
	require.NoError(t, err)

	s, err = SliceAppend(a, s, 9)
	require.NoError(t, err)
	require.NotEqual(t, before, addressOf(asBytes(s)))
	require.Equal(t, []uint32{7, 8, 9}, s)
}

func TestSliceAppendOutOfMemory(t *testing.T) {
	a := newTestArena(t, 64)
	s := AllocateSlice[byte](a, 0, 8)
	s, err := SliceAppend(a, s, []byte("12345678")...)
	require.NoError(t, err)

	out, err := SliceAppend(a, s, make([]byte, 128)...)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, "12345678", string(out))
}

func TestSliceResizeOverflow(t *testing.T) {
	var aborts []error
	a := newTestArena(t, 64, recordAborts(&aborts))
	s := AllocateSlice[uint64](a, 1, 2)
	s[0] = 42

	out, err := resizeSlice(a, s, math.MaxInt/4)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Nil(t, out)
	require.Equal(t, []uint64{42}, s)
	require.Equal(t, 16, a.Offset())
	require.Empty(t, aborts)

	require.Nil(t, AllocateSlice[uint64](a, 0, math.MaxInt/4))
	require.Empty(t, aborts)
}

func TestAllocateSlice(t *testing.T) {
	a := newTestArena(t, 128)
	s := AllocateSlice[uint16](a, 2, 8)
	require.Len(t, s, 2)
	require.Equal(t, 8, cap(s))
	require.Equal(t, 16, a.Offset())

	require.Nil(t, AllocateSlice[uint16](a, 0, 1024))
}

func TestRealloc(t *testing.T) {
	a := newTestArena(t, 256)
	s := Alloc[int32](a, 4)
	copy(s, []int32{1, 2, 3, 4})

	s = Realloc(a, s, 8)
	require.Equal(t, []int32{1, 2, 3, 4, 0, 0, 0, 0}, s)
	s = Realloc(a, s, 2)
	require.Equal(t, []int32{1, 2}, s)
	require.Equal(t, 8, a.Offset())

	require.Equal(t, []int32{0, 0, 0}, Realloc[int32](a, nil, 3))
	require.Nil(t, Realloc(a, s, 1024))

	heap := Realloc[int32](nil, []int32{5}, 2)
	require.Equal(t, []int32{5, 0}, heap)
}

func BenchmarkSliceAppendArena(b *testing.B) {
	a := newTestArena(b, 1024*1024)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var s []int
		for j := 0; j < 64; j++ {
			s, _ = SliceAppend(a, s, j)
		}
		a.Clear()
	}
}

func BenchmarkSliceAppendBuiltin(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var s []int
		for j := 0; j < 64; j++ {
			s = append(s, j)
		}
	}
}
