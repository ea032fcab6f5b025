// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package memory

func mapRegion(size int) (*Region, error) {
	return NewRegion(size)
}
