// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrOutOfMemory is returned when a request does not fit in the remaining capacity.
	ErrOutOfMemory = errors.New("memory: out of memory")

	// ErrOutOfDomain is returned when a block does not belong to the allocator's buffer.
	ErrOutOfDomain = errors.New("memory: block outside of allocator domain")

	// ErrFreedBlock is returned when a block lies in the free region of the allocator.
	ErrFreedBlock = errors.New("memory: block already freed")

	// ErrInvalidArgument marks caller bugs such as zero-sized reallocations.
	ErrInvalidArgument = errors.New("memory: invalid argument")

	// ErrCheckpoint marks misuse of arena checkpoints and scratch arenas.
	ErrCheckpoint = errors.New("memory: invalid checkpoint")

	// ErrEmptyStack is returned by Pop on a stack without live blocks.
	ErrEmptyStack = errors.New("memory: stack is empty")

	// ErrForeignBlock is returned by ClearAt when the walk emptied the stack
	// without meeting the given block.
	ErrForeignBlock = errors.New("memory: block is not a live stack block")

	// ErrOverlap is raised by MemoryCopy when source and destination overlap.
	ErrOverlap = errors.New("memory: overlapping copy")

	// ErrReleased is returned when an owned region is used after Release.
	ErrReleased = errors.New("memory: region released")
)

// invalidArgument builds an assertion failure that still matches ErrInvalidArgument.
func invalidArgument(format string, args ...interface{}) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrInvalidArgument)
}

// checkpointMisuse builds an assertion failure that still matches ErrCheckpoint.
func checkpointMisuse(format string, args ...interface{}) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrCheckpoint)
}
