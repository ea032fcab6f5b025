// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats is a snapshot of an allocator's usage.
type Stats struct {
	Used        int     // bytes below the watermark, padding and headers included
	Capacity    int     // bytes managed by the allocator
	Peak        int     // high-water mark of Used
	Allocations int     // live blocks, for allocators that track them
	Utilization float64 // Used / Capacity, 0 when Capacity is 0
}

func newStats(used, capacity, peak, allocations int) Stats {
	s := Stats{
		Used:        used,
		Capacity:    capacity,
		Peak:        peak,
		Allocations: allocations,
	}
	if capacity > 0 {
		s.Utilization = float64(used) / float64(capacity)
	}
	return s
}

// String formats the snapshot with human readable sizes.
func (s Stats) String() string {
	return fmt.Sprintf("used %s of %s (%.1f%%), peak %s, %d allocations",
		humanize.IBytes(uint64(s.Used)),
		humanize.IBytes(uint64(s.Capacity)),
		s.Utilization*100,
		humanize.IBytes(uint64(s.Peak)),
		s.Allocations,
	)
}
