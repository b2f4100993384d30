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
package checksum_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uftool/uft/internal/checksum"
	"github.com/uftool/uft/pkg/binio"
)

func TestCrc32KnownVector(t *testing.T) {
	require.Equal(t, uint32(0xCBF43926), checksum.Crc32([]byte("123456789")))
	require.Equal(t, uint32(0), checksum.Crc32(nil))
}

func TestCrc32Update(t *testing.T) {
	whole := checksum.Crc32([]byte("123456789"))
	part := checksum.Crc32([]byte("12345"))
	require.Equal(t, whole, checksum.Crc32Update(part, []byte("6789")))
}

func TestAmigaBootChecksumProperty(t *testing.T) {
	boot := make([]byte, 1024)
	copy(boot, "DOS\x01")
	binio.PutU32BE(boot[8:], 880)
	boot[12] = 0x60 // something bootable

	require.False(t, checksum.AmigaBootValid(boot))

	sum := checksum.AmigaBootChecksum(boot)
	binio.PutU32BE(boot[4:], sum)
	require.True(t, checksum.AmigaBootValid(boot))

	// Carry-sum of the zeroed block plus the stored checksum complements
	// to all ones.
	zeroed := make([]byte, len(boot))
	copy(zeroed, boot)
	binio.PutU32BE(zeroed[4:], 0)
	require.Equal(t, uint32(0xFFFFFFFF), checksum.AmigaSum(zeroed)+sum)

	boot[500] ^= 0xFF
	require.False(t, checksum.AmigaBootValid(boot))
}

func TestAmigaSumCarry(t *testing.T) {
	// Two words that overflow must wrap the carry into bit 0.
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x02}
	require.Equal(t, uint32(2), checksum.AmigaSum(data))
}

func TestAtariWordSum(t *testing.T) {
	sector := make([]byte, 512)
	binio.PutU16BE(sector[0:], 0x1000)
	binio.PutU16BE(sector[2:], 0x0234)
	require.Equal(t, uint16(0x1234), checksum.AtariWordSum(sector))

	// Patch one word so the sum lands exactly on the boot magic.
	sector[4] = 0
	var sum uint16
	for i := 0; i < 512; i += 2 {
		sum += binio.U16BE(sector[i:])
	}
	binio.PutU16BE(sector[4:], checksum.AtariBootSum-sum)
	require.Equal(t, uint16(checksum.AtariBootSum), checksum.AtariWordSum(sector))
}
