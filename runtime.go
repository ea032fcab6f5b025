// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"golang.org/x/exp/slog"
)

// AbortHook is invoked for conditions that indicate a bug in the caller.
// The default hook panics with err. A hook that returns lets the failing
// operation return err instead.
type AbortHook func(err error)

// Runtime is the root context threaded through allocator constructors.
// It carries the logger and the failure policy shared by every allocator
// built from it.
type Runtime struct {
	logger *slog.Logger
	abort  AbortHook

	abortOnMemoryError bool // escalate out-of-memory and domain errors to abort
	checkOverlap       bool // assert MemoryCopy preconditions
	checkAlignment     bool // assert alignments are powers of two
	virtualMemory      bool // managers reserve their buffer with mmap
}

// Option configures a Runtime.
type Option func(*Runtime)

// NewRuntime creates a Runtime with the given options applied on top of the
// defaults: slog.Default() logging, panicking abort hook, recoverable
// out-of-memory, overlap and alignment checks enabled.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		checkOverlap:   true,
		checkAlignment: true,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.logger == nil {
		rt.logger = slog.Default()
	}
	if rt.abort == nil {
		rt.abort = func(err error) { panic(err) }
	}
	return rt
}

// WithRuntime makes an allocator share an existing runtime. Options listed
// after it still apply, but to a copy, so the shared runtime is never mutated.
func WithRuntime(shared *Runtime) Option {
	return func(rt *Runtime) {
		if shared != nil {
			*rt = *shared
		}
	}
}

// WithLogger sets the structured logger used for allocation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// WithAbortHook replaces the fatal-error hook.
func WithAbortHook(hook AbortHook) Option {
	return func(rt *Runtime) {
		rt.abort = hook
	}
}

// WithAbortOnMemoryError escalates out-of-memory and domain violations to the
// abort hook instead of returning an error.
func WithAbortOnMemoryError(enabled bool) Option {
	return func(rt *Runtime) {
		rt.abortOnMemoryError = enabled
	}
}

// WithOverlapCheck toggles the overlap assertion in copies performed by the
// allocators.
func WithOverlapCheck(enabled bool) Option {
	return func(rt *Runtime) {
		rt.checkOverlap = enabled
	}
}

// WithAlignmentCheck toggles the power-of-two assertion on alignments.
func WithAlignmentCheck(enabled bool) Option {
	return func(rt *Runtime) {
		rt.checkAlignment = enabled
	}
}

// WithVirtualMemory makes a Manager reserve its buffer through the operating
// system's virtual memory facilities rather than the Go heap.
func WithVirtualMemory(enabled bool) Option {
	return func(rt *Runtime) {
		rt.virtualMemory = enabled
	}
}

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// fatal logs err and hands it to the abort hook.
func (rt *Runtime) fatal(err error) error {
	rt.logger.Error("memory: fatal usage error", "err", err)
	rt.abort(err)
	return err
}

// memoryError reports a recoverable allocation failure, escalating it when the
// runtime is configured to abort on memory errors.
func (rt *Runtime) memoryError(err error, attrs ...any) error {
	rt.logger.Error(err.Error(), attrs...)
	if rt.abortOnMemoryError {
		return rt.fatal(err)
	}
	return err
}

// validAlignment reports whether alignment is usable, aborting when checks are on.
func (rt *Runtime) validAlignment(alignment int) error {
	if alignment > 0 && IsPowerOfTwo(uintptr(alignment)) {
		return nil
	}
	err := invalidArgument("alignment %d is not a power of two", alignment)
	if rt.checkAlignment {
		return rt.fatal(err)
	}
	return err
}

// copy moves min(len(dst), len(src)) bytes, asserting the regions are disjoint
// when overlap checks are enabled.
func (rt *Runtime) copy(dst, src []byte) int {
	if rt.checkOverlap && Overlaps(dst, src) {
		rt.fatal(errors.Mark(
			errors.AssertionFailedf("copy of %s between overlapping regions", humanize.IBytes(uint64(len(src)))),
			ErrOverlap,
		))
	}
	return MemoryMove(dst, src)
}

func bytesAttr(key string, n int) slog.Attr {
	if n < 0 {
		n = 0
	}
	return slog.String(key, humanize.IBytes(uint64(n)))
}
