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
package cpm

import "github.com/uftool/uft/pkg/binio"

const (
	// EntrySize is the on-disk size of a directory entry.
	EntrySize = 32

	// DeletedUser marks a deleted entry (and fills a freshly formatted
	// directory).
	DeletedUser = 0xE5

	// MaxUser is the highest valid user area.
	MaxUser = 31

	// WildcardUser matches any user area in lookups.
	WildcardUser = 0xFF
)

// Attr is the set of CP/M file attributes, stored in bit 7 of the three
// extension bytes.
type Attr uint8

const (
	AttrReadOnly Attr = 1 << iota
	AttrSystem
	AttrArchived
)

func (a Attr) String() string {
	s := [3]byte{'-', '-', '-'}
	if a&AttrReadOnly != 0 {
		s[0] = 'R'
	}
	if a&AttrSystem != 0 {
		s[1] = 'S'
	}
	if a&AttrArchived != 0 {
		s[2] = 'A'
	}
	return string(s[:])
}

// DirEntry is one 32-byte directory slot. Name and Ext keep the raw bytes,
// attribute bits included.
type DirEntry struct {
	User  uint8
	Name  [8]byte
	Ext   [3]byte
	Ex    uint8 // extent number, low 5 bits
	S1    uint8
	S2    uint8 // extent number, high bits
	Rc    uint8 // 128-byte records in the last logical extent
	Alloc [16]uint8
}

func decodeEntry(b []byte) DirEntry {
	var e DirEntry
	e.User = b[0]
	copy(e.Name[:], b[1:9])
	copy(e.Ext[:], b[9:12])
	e.Ex = b[12]
	e.S1 = b[13]
	e.S2 = b[14]
	e.Rc = b[15]
	copy(e.Alloc[:], b[16:32])
	return e
}

func (e *DirEntry) encode(b []byte) {
	b[0] = e.User
	copy(b[1:9], e.Name[:])
	copy(b[9:12], e.Ext[:])
	b[12] = e.Ex
	b[13] = e.S1
	b[14] = e.S2
	b[15] = e.Rc
	copy(b[16:32], e.Alloc[:])
}

// ExtentNumber is the 14-bit logical extent number: EX | (S2 << 5).
func (e DirEntry) ExtentNumber() int {
	return int(e.Ex&0x1F) | int(e.S2)<<5
}

func (e *DirEntry) setExtentNumber(n int) {
	e.Ex = uint8(n & 0x1F)
	e.S2 = uint8(n >> 5)
}

// fileKey is the (user, name, ext) identity of a file, attribute bits
// stripped.
type fileKey struct {
	user uint8
	name [8]byte
	ext  [3]byte
}

func (e DirEntry) key() fileKey {
	k := fileKey{user: e.User}
	for i, b := range e.Name {
		k.name[i] = b & 0x7F
	}
	for i, b := range e.Ext {
		k.ext[i] = b & 0x7F
	}
	return k
}

// Attributes reads the attribute bits out of the extension bytes.
func (e DirEntry) Attributes() Attr {
	var a Attr
	if e.Ext[0]&0x80 != 0 {
		a |= AttrReadOnly
	}
	if e.Ext[1]&0x80 != 0 {
		a |= AttrSystem
	}
	if e.Ext[2]&0x80 != 0 {
		a |= AttrArchived
	}
	return a
}

func (e *DirEntry) setAttributes(a Attr) {
	e.Ext[0] = e.Ext[0]&0x7F | boolBit(a&AttrReadOnly != 0)
	e.Ext[1] = e.Ext[1]&0x7F | boolBit(a&AttrSystem != 0)
	e.Ext[2] = e.Ext[2]&0x7F | boolBit(a&AttrArchived != 0)
}

func boolBit(v bool) uint8 {
	if v {
		return 0x80
	}
	return 0
}

// BlockPointers decodes the allocation area: sixteen 8-bit pointers, or
// eight little-endian 16-bit pointers on disks with DSM > 255. Zero
// pointers (unallocated tail) are dropped.
func (e DirEntry) BlockPointers(wide bool) []uint16 {
	var out []uint16
	if wide {
		for i := 0; i < 16; i += 2 {
			p := binio.U16LE(e.Alloc[i:])
			if p != 0 {
				out = append(out, p)
			}
		}
		return out
	}
	for _, p := range e.Alloc {
		if p != 0 {
			out = append(out, uint16(p))
		}
	}
	return out
}

func (e *DirEntry) setBlockPointers(ptrs []uint16, wide bool) {
	for i := range e.Alloc {
		e.Alloc[i] = 0
	}
	if wide {
		for i, p := range ptrs {
			binio.PutU16LE(e.Alloc[i*2:], p)
		}
		return
	}
	for i, p := range ptrs {
		e.Alloc[i] = uint8(p)
	}
}
