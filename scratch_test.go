// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestScratchRestoresOffset(t *testing.T) {
	a := newTestArena(t, 1024)
	_, err := a.AllocAlign(100, 1)
	require.NoError(t, err)

	func() {
		s := a.Scratch()
		defer s.Release()
		require.Equal(t, 100, s.SavedOffset())

		_, err := s.Arena.AllocAlign(50, 1)
		require.NoError(t, err)
		require.Equal(t, 150, a.Offset())
	}()

	require.Equal(t, 100, a.Offset())
	require.Equal(t, 150, a.Peak())
}

func TestScratchReleaseIsIdempotent(t *testing.T) {
	a := newTestArena(t, 256)
	s := a.Scratch()
	_, err := s.Arena.AllocAlign(32, 1)
	require.NoError(t, err)

	s.Release()
	require.Equal(t, 0, a.Offset())

	_, err = a.AllocAlign(16, 1)
	require.NoError(t, err)
	s.Release()
	require.Equal(t, 16, a.Offset())
}

func TestScratchDecouple(t *testing.T) {
	a := newTestArena(t, 1024)
	outer := a.Scratch()
	_, err := a.AllocAlign(64, 1)
	require.NoError(t, err)

	inner := outer.Decouple()
	require.Equal(t, 64, inner.SavedOffset())
	_, err = inner.Arena.AllocAlign(64, 1)
	require.NoError(t, err)

	inner.Release()
	require.Equal(t, 64, a.Offset())
	outer.Release()
	require.Equal(t, 0, a.Offset())
}

func TestScratchOutOfOrderRelease(t *testing.T) {
	var aborts []error
	a := newTestArena(t, 1024, recordAborts(&aborts))

	outer := a.Scratch()
	_, err := a.AllocAlign(64, 1)
	require.NoError(t, err)
	inner := outer.Decouple()

	outer.Release()
	require.Equal(t, 0, a.Offset())
	inner.Release()
	require.Len(t, aborts, 1)
	require.True(t, errors.Is(aborts[0], ErrCheckpoint))
	require.Equal(t, 0, a.Offset())
}

func TestWithScratch(t *testing.T) {
	a := newTestArena(t, 1024)
	_, err := a.AllocAlign(8, 1)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = a.WithScratch(func(s *Scratch) error {
		_, err := s.Arena.AllocAlign(128, 8)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 8, a.Offset())

	require.Panics(t, func() {
		_ = a.WithScratch(func(s *Scratch) error {
			_, _ = s.Arena.AllocAlign(128, 8)
			panic("fail")
		})
	})
	require.Equal(t, 8, a.Offset())
}

func TestCheckpoint(t *testing.T) {
	t.Run("restore", func(t *testing.T) {
		a := newTestArena(t, 1024)
		cp := a.Checkpoint()
		require.True(t, cp.Valid())
		_, err := a.AllocAlign(200, 1)
		require.NoError(t, err)

		require.NoError(t, a.Restore(&cp))
		require.Equal(t, 0, a.Offset())
		require.False(t, cp.Valid())
	})

	t.Run("misuse", func(t *testing.T) {
		var aborts []error
		a := newTestArena(t, 1024, recordAborts(&aborts))
		other := newTestArena(t, 1024)

		cp := a.Checkpoint()
		require.NoError(t, a.Restore(&cp))
		require.ErrorIs(t, a.Restore(&cp), ErrCheckpoint)
		require.ErrorIs(t, a.Restore(nil), ErrCheckpoint)

		foreign := other.Checkpoint()
		require.ErrorIs(t, a.Restore(&foreign), ErrCheckpoint)

		_, err := a.AllocAlign(64, 1)
		require.NoError(t, err)
		ahead := a.Checkpoint()
		a.Clear()
		require.ErrorIs(t, a.Restore(&ahead), ErrCheckpoint)
		require.True(t, ahead.Valid())
		require.Len(t, aborts, 4)
	})

	t.Run("default hook panics", func(t *testing.T) {
		a := newTestArena(t, 64)
		require.Panics(t, func() { _ = a.Restore(nil) })
	})
}

func TestCheckpointRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := NewArena(make([]byte, 16*1024), WithLogger(discardLogger()))
		_, err := a.AllocAlign(rapid.IntRange(1, 1024).Draw(t, "prefix"), 1)
		require.NoError(t, err)

		save := a.Checkpoint()
		sizes := rapid.SliceOfN(rapid.IntRange(1, 256), 1, 16).Draw(t, "sizes")
		alignment := 1 << rapid.IntRange(0, 6).Draw(t, "shift")
		var first uintptr
		for i, size := range sizes {
			block, err := a.AllocAlign(size, alignment)
			require.NoError(t, err)
			if i == 0 {
				first = addressOf(block)
			}
		}

		require.NoError(t, a.Restore(&save))
		require.Equal(t, save.Offset(), a.Offset())

		again, err := a.AllocAlign(sizes[0], alignment)
		require.NoError(t, err)
		require.Equal(t, first, addressOf(again))
	})
}
