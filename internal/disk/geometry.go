// Copyright (c) 2025 The UFT Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package disk models the physical shape of a floppy image: sector
// geometry, the table of known image sizes, and the sector read/write
// callbacks the filesystem engines are driven through.
package disk

import "fmt"

// Geometry describes the physical layout of a disk. Values are constructed
// through NewGeometry and passed by value; a Geometry is never mutated.
type Geometry struct {
	SectorSize      uint32 // bytes per sector, power of two in 128..8192
	SectorsPerTrack uint32
	Heads           uint32
	Cylinders       uint32
	FirstSectorID   uint32 // id of the first sector on a track (0, 1, ...)
}

func NewGeometry(sectorSize, sectorsPerTrack, heads, cylinders, firstSectorID uint32) (Geometry, error) {
	g := Geometry{
		SectorSize:      sectorSize,
		SectorsPerTrack: sectorsPerTrack,
		Heads:           heads,
		Cylinders:       cylinders,
		FirstSectorID:   firstSectorID,
	}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

func (g Geometry) Validate() error {
	if g.SectorSize < 128 || g.SectorSize > 8192 || g.SectorSize&(g.SectorSize-1) != 0 {
		return fmt.Errorf("invalid sector size %d", g.SectorSize)
	}
	if g.SectorsPerTrack == 0 {
		return fmt.Errorf("sectors per track must be non-zero")
	}
	if g.Heads == 0 || g.Heads > 2 {
		return fmt.Errorf("invalid head count %d", g.Heads)
	}
	if g.Cylinders == 0 || g.Cylinders > 255 {
		return fmt.Errorf("invalid cylinder count %d", g.Cylinders)
	}
	return nil
}

// TotalSectors is the number of sectors on the whole disk.
func (g Geometry) TotalSectors() uint64 {
	return uint64(g.SectorsPerTrack) * uint64(g.Heads) * uint64(g.Cylinders)
}

// DiskSize is the raw capacity of the disk in bytes.
func (g Geometry) DiskSize() uint64 {
	return g.TotalSectors() * uint64(g.SectorSize)
}

// TrackSize is the capacity of a single track in bytes.
func (g Geometry) TrackSize() uint64 {
	return uint64(g.SectorsPerTrack) * uint64(g.SectorSize)
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%dx%dx%d (first sector %d)",
		g.Cylinders, g.Heads, g.SectorsPerTrack, g.SectorSize, g.FirstSectorID)
}
