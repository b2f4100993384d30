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

// Package checksum holds the small family of checksums used by vintage disk
// formats: CRC-32 (IEEE) for preservation containers, the Amiga bootblock
// additive-carry sum, and the Atari ST boot sector word sum.
package checksum

import (
	"hash/crc32"
	"sync"

	"github.com/uftool/uft/pkg/binio"
)

var (
	crcOnce  sync.Once
	crcTable *crc32.Table
)

// Crc32 computes the IEEE 802.3 CRC-32 of data (reflected, initial and
// final 0xFFFFFFFF). The lookup table is built on first use.
func Crc32(data []byte) uint32 {
	crcOnce.Do(func() {
		crcTable = crc32.MakeTable(crc32.IEEE)
	})
	return crc32.Checksum(data, crcTable)
}

// Crc32Update continues a running CRC-32 over an additional chunk.
func Crc32Update(crc uint32, data []byte) uint32 {
	crcOnce.Do(func() {
		crcTable = crc32.MakeTable(crc32.IEEE)
	})
	return crc32.Update(crc, crcTable, data)
}

// AmigaSum computes the AmigaDOS bootblock checksum: the additive sum of all
// big-endian 32-bit words with carry wrapped back into bit 0. A trailing
// partial word is zero-padded.
func AmigaSum(data []byte) uint32 {
	var sum uint32
	for i := 0; i < len(data); i += 4 {
		var w uint32
		if i+4 <= len(data) {
			w = binio.U32BE(data[i:])
		} else {
			var tail [4]byte
			copy(tail[:], data[i:])
			w = binio.U32BE(tail[:])
		}
		prev := sum
		sum += w
		if sum < prev {
			sum++
		}
	}
	return sum
}

// AmigaBootValid reports whether a 1024-byte bootblock checksums correctly:
// with the stored checksum at offset 4 zeroed, the carry sum plus the stored
// value must equal 0xFFFFFFFF.
func AmigaBootValid(boot []byte) bool {
	if len(boot) < 12 {
		return false
	}
	stored := binio.U32BE(boot[4:])
	zeroed := make([]byte, len(boot))
	copy(zeroed, boot)
	binio.PutU32BE(zeroed[4:], 0)

	sum := AmigaSum(zeroed)
	total := sum + stored
	if total < sum {
		total++
	}
	return total == 0xFFFFFFFF
}

// AmigaBootChecksum returns the value to store at offset 4 so that
// AmigaBootValid holds for the block.
func AmigaBootChecksum(boot []byte) uint32 {
	zeroed := make([]byte, len(boot))
	copy(zeroed, boot)
	if len(zeroed) >= 8 {
		binio.PutU32BE(zeroed[4:], 0)
	}
	return ^AmigaSum(zeroed)
}

// AtariWordSum computes the 16-bit big-endian word sum of a 512-byte boot
// sector. A sum of 0x1234 marks the sector as executable on the Atari ST.
func AtariWordSum(sector []byte) uint16 {
	var sum uint16
	for i := 0; i+2 <= len(sector) && i < 512; i += 2 {
		sum += binio.U16BE(sector[i:])
	}
	return sum
}

// AtariBootSum is the magic word sum of an executable Atari ST boot sector.
const AtariBootSum = 0x1234
