// SPDX-License-Identifier: Apache-2.0

//go:build unix

package memory

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

func mapRegion(size int) (*Region, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, ErrOutOfMemory), "memory: mmap %d bytes", size)
	}
	return &Region{
		buf:   buf[:size:size],
		unmap: unix.Munmap,
	}, nil
}
