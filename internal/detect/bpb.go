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
package detect

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/go-restruct/restruct"

	"github.com/uftool/uft/pkg/binio"
)

// fat12ClusterLimit is the lowest cluster count that makes the FAT 16-bit;
// a FAT12 volume holds at most one cluster fewer.
const fat12ClusterLimit = 4085

// fatBpbWire is the boot-sector layout through the Extended BPB, at its
// canonical little-endian offsets (62 bytes).
type fatBpbWire struct {
	Jump              [3]byte
	Oem               [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFats           uint8
	RootEntries       uint16
	TotalSectors16    uint16
	Media             uint8
	SectorsPerFat     uint16
	SectorsPerTrack   uint16
	Heads             uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
	DriveNumber       uint8
	Reserved1         uint8
	BootSig           uint8
	VolumeSerial      uint32
	VolumeLabel       [11]byte
	FsType            [8]byte
}

const fatBpbWireSize = 62

// FatBpb is a parsed BIOS Parameter Block plus the derived values detection
// scores against.
type FatBpb struct {
	Jump              [3]byte
	Oem               string
	BytesPerSector    uint32
	SectorsPerCluster uint32
	ReservedSectors   uint32
	NumFats           uint32
	RootEntries       uint32
	TotalSectors      uint32
	Media             uint8
	SectorsPerFat     uint32
	SectorsPerTrack   uint32
	Heads             uint32
	HiddenSectors     uint32

	// Extended BPB, present when BootSig is 0x28 or 0x29.
	HasExtended  bool
	VolumeSerial uint32
	VolumeLabel  string
	FsType       string

	// Derived.
	Valid        bool
	BootSig55AA  bool
	RootDirStart uint32 // sector of the root directory
	DataStart    uint32 // first data sector
	ClusterCount uint32
}

// Render implements Detail.
func (b *FatBpb) Render() string {
	return fmt.Sprintf("BPB %d bytes/sector, %d/cluster, %d reserved, %d FATs, %d root entries, %d sectors, media 0x%02X",
		b.BytesPerSector, b.SectorsPerCluster, b.ReservedSectors, b.NumFats,
		b.RootEntries, b.TotalSectors, b.Media)
}

func isPow2(v uint32) bool { return v != 0 && v&(v-1) == 0 }

// ParseFatBpb decodes a 512-byte boot sector. The returned BPB always holds
// the raw field values; Valid reports whether they form a usable FAT
// layout on a disk of diskSize bytes.
func ParseFatBpb(sector []byte, diskSize uint64) (*FatBpb, error) {
	if len(sector) < fatBpbWireSize {
		return nil, StatusNoData
	}

	var w fatBpbWire
	if err := restruct.Unpack(sector[:fatBpbWireSize], binary.LittleEndian, &w); err != nil {
		return nil, StatusInvalidBpb
	}

	b := &FatBpb{
		Jump:              w.Jump,
		Oem:               strings.TrimRight(string(w.Oem[:]), " \x00"),
		BytesPerSector:    uint32(w.BytesPerSector),
		SectorsPerCluster: uint32(w.SectorsPerCluster),
		ReservedSectors:   uint32(w.ReservedSectors),
		NumFats:           uint32(w.NumFats),
		RootEntries:       uint32(w.RootEntries),
		Media:             w.Media,
		SectorsPerFat:     uint32(w.SectorsPerFat),
		SectorsPerTrack:   uint32(w.SectorsPerTrack),
		Heads:             uint32(w.Heads),
		HiddenSectors:     w.HiddenSectors,
	}
	b.TotalSectors = uint32(w.TotalSectors16)
	if b.TotalSectors == 0 {
		b.TotalSectors = w.TotalSectors32
	}
	if w.BootSig == 0x28 || w.BootSig == 0x29 {
		b.HasExtended = true
		b.VolumeSerial = w.VolumeSerial
		b.VolumeLabel = strings.TrimRight(string(w.VolumeLabel[:]), " \x00")
		b.FsType = strings.TrimRight(string(w.FsType[:]), " \x00")
	}
	if len(sector) >= 512 {
		b.BootSig55AA = binio.U16LE(sector[510:]) == 0xAA55
	}

	b.Valid = b.computeValidity(diskSize)
	return b, nil
}

func (b *FatBpb) computeValidity(diskSize uint64) bool {
	if !isPow2(b.BytesPerSector) || b.BytesPerSector < 128 || b.BytesPerSector > 4096 {
		return false
	}
	if !isPow2(b.SectorsPerCluster) || b.SectorsPerCluster > 128 {
		return false
	}
	if b.ReservedSectors < 1 || b.NumFats < 1 || b.NumFats > 4 {
		return false
	}
	if b.RootEntries == 0 || b.Media < 0xF0 {
		return false
	}
	if b.SectorsPerTrack < 1 || b.SectorsPerTrack > 63 {
		return false
	}
	if b.Heads < 1 || b.Heads > 255 {
		return false
	}
	if b.TotalSectors == 0 || uint64(b.TotalSectors)*uint64(b.BytesPerSector) > diskSize {
		return false
	}

	rootSectors := (b.RootEntries*32 + b.BytesPerSector - 1) / b.BytesPerSector
	b.RootDirStart = b.ReservedSectors + b.NumFats*b.SectorsPerFat
	b.DataStart = b.RootDirStart + rootSectors
	if b.DataStart >= b.TotalSectors {
		return false
	}
	b.ClusterCount = (b.TotalSectors - b.DataStart) / b.SectorsPerCluster
	return b.ClusterCount >= 1
}

// FatKind picks FAT12 vs FAT16 at the 4085-cluster boundary.
func (b *FatBpb) FatKind() Kind {
	if b.ClusterCount < fat12ClusterLimit {
		return KindFAT12
	}
	return KindFAT16
}
