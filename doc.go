// SPDX-License-Identifier: Apache-2.0

// Package memory provides explicit allocators over caller owned byte buffers:
// a bump Arena with scratch scopes and checkpoints, a LIFO Stack with
// per-block headers, and a Manager that owns a region and mints arenas from
// it. Containers (slices, DynArray, Array, Buffer) allocate through the
// narrow Allocator interface.
//
// Allocators are not safe for concurrent use; give each goroutine its own
// arena, for instance through a Pool or Region.Carve. Types stored in
// allocator memory must not contain Go pointers, the garbage collector does
// not scan it.
package memory
