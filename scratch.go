// SPDX-License-Identifier: Apache-2.0

package memory

// Scratch is a temporary allocation scope over an arena. It remembers the
// arena offset at creation and rolls the arena back to it on Release:
//
//	s := arena.Scratch()
//	defer s.Release()
//
// Scratches may be nested through Decouple. Releasing them out of order, so
// that a scratch would move the arena forward, is a fatal usage error.
type Scratch struct {
	// Arena is the parent arena, allocations made through it are undone by Release.
	Arena *Arena

	saved    int
	released bool
}

// Scratch opens a scratch scope snapshotting the current offset.
func (a *Arena) Scratch() *Scratch {
	return &Scratch{Arena: a, saved: a.offset}
}

// Decouple opens a new scratch scope over the same arena, snapshotting the
// arena as it is now rather than when s was created.
func (s *Scratch) Decouple() *Scratch {
	return s.Arena.Scratch()
}

// SavedOffset returns the offset the arena goes back to on Release.
func (s *Scratch) SavedOffset() int {
	return s.saved
}

// Release rolls the arena back to the saved offset. Subsequent calls are no-ops.
func (s *Scratch) Release() {
	if s.released || s.Arena == nil {
		return
	}
	s.released = true
	if s.saved > s.Arena.offset {
		s.Arena.rt.fatal(checkpointMisuse(
			"scratch release would move the arena forward from %d to %d", s.Arena.offset, s.saved))
		return
	}
	s.Arena.offset = s.saved
}

// WithScratch runs fn inside a scratch scope. The arena is rolled back when fn
// returns, errors or panics.
func (a *Arena) WithScratch(fn func(s *Scratch) error) error {
	s := a.Scratch()
	defer s.Release()
	return fn(s)
}

// Checkpoint is a manually restored snapshot of an arena offset.
type Checkpoint struct {
	arena  *Arena
	offset int
}

// Offset returns the arena offset captured by the checkpoint.
func (c Checkpoint) Offset() int {
	return c.offset
}

// Valid reports whether the checkpoint can still be restored.
func (c Checkpoint) Valid() bool {
	return c.arena != nil
}

// Checkpoint captures the current offset.
func (a *Arena) Checkpoint() Checkpoint {
	return Checkpoint{arena: a, offset: a.offset}
}

// Restore rolls the arena back to cp and invalidates cp. Restoring a
// checkpoint of another arena, an already restored checkpoint, or one ahead of
// the current offset is a fatal usage error.
func (a *Arena) Restore(cp *Checkpoint) error {
	switch {
	case cp == nil || cp.arena == nil:
		return a.rt.fatal(checkpointMisuse("restore of an invalidated checkpoint"))
	case cp.arena != a:
		return a.rt.fatal(checkpointMisuse("restore of a checkpoint taken from a distinct arena"))
	case cp.offset > a.offset:
		return a.rt.fatal(checkpointMisuse(
			"checkpoint offset %d is ahead of the arena offset %d", cp.offset, a.offset))
	}
	a.offset = cp.offset
	cp.arena = nil
	return nil
}
