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
package cpm_test

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uftool/uft/internal/cpm"
	"github.com/uftool/uft/internal/disk"
)

func TestComputeDpbKaypro(t *testing.T) {
	g, err := disk.NewGeometry(512, 10, 1, 40, 0)
	require.NoError(t, err)

	dpb, err := cpm.ComputeDpb(g, 2, 1024, 64)
	require.NoError(t, err)

	require.Equal(t, uint16(40), dpb.Spt) // 5120 track bytes / 128
	require.Equal(t, uint8(3), dpb.Bsh)   // log2(1024/128)
	require.Equal(t, uint8(7), dpb.Blm)
	require.Equal(t, uint32(1024), dpb.BlockSize())
	// 38 data tracks * 5120 bytes / 1024 = 190 blocks
	require.Equal(t, uint16(189), dpb.Dsm)
	require.Equal(t, uint16(63), dpb.Drm)
	require.Equal(t, 2, dpb.DirBlocks())
	require.Equal(t, uint8(0xC0), dpb.Al0)
	require.Equal(t, uint8(0x00), dpb.Al1)
	require.Equal(t, uint16(2), dpb.Off)
	require.False(t, dpb.Wide16())
	require.NoError(t, dpb.Validate())
}

func TestComputeDpbInvariants(t *testing.T) {
	cases := []struct {
		secSize, spt, heads, cyls uint32
		boot, bls, dir            int
	}{
		{512, 10, 1, 40, 2, 1024, 64},
		{512, 9, 2, 80, 2, 2048, 128},
		{128, 26, 1, 77, 2, 1024, 64},
		{512, 9, 1, 40, 1, 1024, 64},
	}
	for _, tc := range cases {
		g, err := disk.NewGeometry(tc.secSize, tc.spt, tc.heads, tc.cyls, 0)
		require.NoError(t, err)
		dpb, err := cpm.ComputeDpb(g, tc.boot, tc.bls, tc.dir)
		require.NoError(t, err)

		require.Equal(t, uint32(tc.bls), dpb.BlockSize())
		require.Equal(t, uint32(tc.bls), uint32(128)<<dpb.Bsh)
		require.Equal(t, uint32(tc.bls)/128-1, uint32(dpb.Blm))

		dataTracks := int(tc.cyls)*int(tc.heads) - tc.boot
		wantBlocks := dataTracks * int(tc.secSize) * int(tc.spt) / tc.bls
		require.Equal(t, wantBlocks, int(dpb.Dsm)+1)

		dirBlocks := (tc.dir*32 + tc.bls - 1) / tc.bls
		require.Equal(t, dirBlocks, dpb.DirBlocks())
		// AL0/AL1 bits are contiguous from the MSB.
		mask := uint16(dpb.Al0)<<8 | uint16(dpb.Al1)
		require.Equal(t, dirBlocks, bits.OnesCount16(mask))
		require.Equal(t, bits.LeadingZeros16(mask), 0)
		require.Equal(t, 16-dirBlocks, bits.TrailingZeros16(mask))
	}
}

func TestComputeDpbRejects(t *testing.T) {
	g, _ := disk.NewGeometry(512, 10, 1, 40, 0)
	_, err := cpm.ComputeDpb(g, 2, 512, 64) // bad block size
	require.Error(t, err)
	_, err = cpm.ComputeDpb(g, 40, 1024, 64) // all tracks reserved
	require.Error(t, err)
	_, err = cpm.ComputeDpb(g, 2, 1024, 0)
	require.Error(t, err)
}

func TestParseName(t *testing.T) {
	base, ext, err := cpm.ParseName("hello.com")
	require.NoError(t, err)
	require.Equal(t, "HELLO   ", string(base[:]))
	require.Equal(t, "COM", string(ext[:]))

	base, ext, err = cpm.ParseName("A")
	require.NoError(t, err)
	require.Equal(t, "A       ", string(base[:]))
	require.Equal(t, "   ", string(ext[:]))

	for _, bad := range []string{"", ".COM", "TOOLONGNAME.TXT", "HI.LONG", "A B.TXT", "X*.COM", "A.B.C"} {
		_, _, err := cpm.ParseName(bad)
		require.Error(t, err, "name %q", bad)
		require.ErrorIs(t, err, cpm.StatusInvalidName)
	}
}

func TestTimestamp(t *testing.T) {
	ts := cpm.Timestamp{}
	require.Equal(t, "---", ts.String())

	ts = cpm.Timestamp{Days: 1, Hour: 10, Minute: 30, Valid: true}
	require.Equal(t, "1978-01-01 10:30", ts.String())

	tm, ok := ts.Time()
	require.True(t, ok)
	require.Equal(t, ts, cpm.TimestampOf(tm))
}
