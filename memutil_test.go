// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOverlaps(t *testing.T) {
	buf := make([]byte, 32)
	require.True(t, Overlaps(buf[:16], buf[8:24]))
	require.True(t, Overlaps(buf[8:24], buf[:16]))
	require.False(t, Overlaps(buf[:16], buf[16:]))
	require.False(t, Overlaps(buf[:0], buf))
	require.False(t, Overlaps(nil, buf))
	require.False(t, Overlaps(buf, make([]byte, 32)))
}

func TestMemoryCopy(t *testing.T) {
	dst := make([]byte, 4)
	require.Equal(t, 4, MemoryCopy(dst, []byte("abcdefgh")))
	require.Equal(t, "abcd", string(dst))

	require.Equal(t, 0, MemoryCopy(nil, []byte("x")))
	require.Equal(t, 0, MemoryCopy(dst, nil))

	buf := []byte("0123456789")
	require.PanicsWithValue(t, ErrOverlap, func() { MemoryCopy(buf[2:], buf) })
}

func TestMemoryMove(t *testing.T) {
	buf := []byte("0123456789")
	require.Equal(t, 8, MemoryMove(buf[2:], buf))
	require.Equal(t, "0101234567", string(buf))

	buf = []byte("0123456789")
	require.Equal(t, 8, MemoryMove(buf, buf[2:]))
	require.Equal(t, "2345678989", string(buf))

	require.Equal(t, 0, MemoryMove(nil, buf))
}

func TestMemorySet(t *testing.T) {
	for _, n := range []int{1, 2, 7, 64, 1000} {
		buf := make([]byte, n)
		MemorySet(buf, 0x5a)
		require.Equal(t, bytes.Repeat([]byte{0x5a}, n), buf)
		MemorySet(buf, 0)
		require.Equal(t, make([]byte, n), buf)
	}
	MemorySet(nil, 1)
}

func TestRuntimeCopyOverlap(t *testing.T) {
	var aborts []error
	rt := NewRuntime(WithLogger(discardLogger()), recordAborts(&aborts))
	buf := []byte("0123456789")

	require.Equal(t, 8, rt.copy(buf[2:], buf))
	require.Len(t, aborts, 1)
	require.ErrorIs(t, aborts[0], ErrOverlap)

	unchecked := NewRuntime(WithRuntime(rt), WithOverlapCheck(false))
	buf = []byte("0123456789")
	unchecked.copy(buf, buf[2:])
	require.Len(t, aborts, 1)
	require.Equal(t, "2345678989", string(buf))
}
