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

// Package cpm implements reading and writing CP/M 2.2/3.0 filesystems
// through sector callbacks. Disk layout is described by the classical Disk
// Parameter Block; the engine keeps the directory and an allocation bitmap
// in memory and flushes dirty directory sectors on Sync.
package cpm

import (
	"math/bits"

	"github.com/pkg/errors"

	"github.com/uftool/uft/internal/disk"
)

// RecordSize is the CP/M logical record: 128 bytes.
const RecordSize = 128

// recordsPerExtent is the capacity of one logical extent (16 KiB).
const recordsPerExtent = 128

// Dpb is the classical CP/M Disk Parameter Block.
type Dpb struct {
	Spt uint16 // 128-byte records per track
	Bsh uint8  // block shift: log2(block size / 128)
	Blm uint8  // block mask: 2^BSH - 1
	Exm uint8  // extent mask
	Dsm uint16 // highest block number
	Drm uint16 // highest directory entry number
	Al0 uint8  // directory allocation bitmap, MSB first
	Al1 uint8
	Cks uint16 // directory check vector size
	Off uint16 // reserved boot tracks
}

// BlockSize is the allocation unit in bytes.
func (d Dpb) BlockSize() uint32 { return RecordSize << d.Bsh }

// DirEntries is the number of directory slots.
func (d Dpb) DirEntries() int { return int(d.Drm) + 1 }

// DirBlocks counts the directory blocks reserved in AL0/AL1.
func (d Dpb) DirBlocks() int {
	return bits.OnesCount8(d.Al0) + bits.OnesCount8(d.Al1)
}

// Wide16 reports whether allocation pointers are 16-bit. CP/M switches to
// wide pointers once the disk holds more than 256 blocks.
func (d Dpb) Wide16() bool { return d.Dsm > 255 }

// PointersPerEntry is how many block pointers fit the 16-byte allocation
// area of one directory entry.
func (d Dpb) PointersPerEntry() int {
	if d.Wide16() {
		return 8
	}
	return 16
}

// Validate checks the structural DPB invariants.
func (d Dpb) Validate() error {
	bs := d.BlockSize()
	switch bs {
	case 1024, 2048, 4096, 8192, 16384:
	default:
		return errors.Wrapf(StatusUnsupported, "block size %d", bs)
	}
	if uint32(d.Blm) != bs/RecordSize-1 {
		return errors.Wrapf(StatusBadDir, "BLM %d does not match BSH %d", d.Blm, d.Bsh)
	}
	dirBlocks := d.DirBlocks()
	if dirBlocks == 0 {
		return errors.Wrap(StatusBadDir, "no directory blocks in AL0/AL1")
	}
	if uint32(dirBlocks)*bs < uint32(d.DirEntries())*EntrySize {
		return errors.Wrapf(StatusBadDir, "%d directory blocks cannot hold %d entries", dirBlocks, d.DirEntries())
	}
	if int(d.Dsm)+1 <= dirBlocks {
		return errors.Wrapf(StatusBadDir, "DSM %d leaves no data blocks", d.Dsm)
	}
	return nil
}

// dirAllocBits builds AL0/AL1 with the top dirBlocks bits set from the MSB.
func dirAllocBits(dirBlocks int) (uint8, uint8) {
	var al uint16
	for i := 0; i < dirBlocks && i < 16; i++ {
		al |= 0x8000 >> i
	}
	return uint8(al >> 8), uint8(al)
}

// ComputeDpb derives a DPB from physical geometry plus the format choices a
// system makes: reserved boot tracks, allocation block size, and directory
// entry count.
func ComputeDpb(g disk.Geometry, bootTracks, blockSize, dirEntries int) (Dpb, error) {
	if err := g.Validate(); err != nil {
		return Dpb{}, errors.Wrap(StatusNullParam, err.Error())
	}
	switch blockSize {
	case 1024, 2048, 4096, 8192, 16384:
	default:
		return Dpb{}, errors.Wrapf(StatusUnsupported, "block size %d", blockSize)
	}
	if dirEntries <= 0 || dirEntries > 1024 {
		return Dpb{}, errors.Wrapf(StatusUnsupported, "%d directory entries", dirEntries)
	}

	trackBytes := int(g.TrackSize())
	totalTracks := int(g.Cylinders) * int(g.Heads)
	if bootTracks < 0 || bootTracks >= totalTracks {
		return Dpb{}, errors.Wrapf(StatusUnsupported, "%d boot tracks on a %d-track disk", bootTracks, totalTracks)
	}

	dataBytes := (totalTracks - bootTracks) * trackBytes
	blocks := dataBytes / blockSize
	if blocks < 2 {
		return Dpb{}, errors.Wrap(StatusUnsupported, "disk too small for the block size")
	}

	bsh := uint8(bits.TrailingZeros32(uint32(blockSize / RecordSize)))
	dsm := uint16(blocks - 1)

	var exm uint8
	if dsm < 256 {
		exm = uint8(blockSize/1024 - 1)
	} else {
		if blockSize == 1024 {
			return Dpb{}, errors.Wrap(StatusUnsupported, "1K blocks need DSM < 256")
		}
		exm = uint8(blockSize/2048 - 1)
	}

	dirBlocks := (dirEntries*EntrySize + blockSize - 1) / blockSize
	if dirBlocks > 16 {
		return Dpb{}, errors.Wrapf(StatusUnsupported, "directory needs %d blocks, AL0/AL1 hold 16", dirBlocks)
	}
	al0, al1 := dirAllocBits(dirBlocks)

	d := Dpb{
		Spt: uint16(trackBytes / RecordSize),
		Bsh: bsh,
		Blm: uint8(blockSize/RecordSize - 1),
		Exm: exm,
		Dsm: dsm,
		Drm: uint16(dirEntries - 1),
		Al0: al0,
		Al1: al1,
		Cks: uint16(dirEntries / 4),
		Off: uint16(bootTracks),
	}
	if err := d.Validate(); err != nil {
		return Dpb{}, err
	}
	return d, nil
}
