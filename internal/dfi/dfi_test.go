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
package dfi_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uftool/uft/internal/dfi"
	"github.com/uftool/uft/pkg/binio"
)

// buildFile frames delta streams into a DFI container.
func buildFile(streams ...[]byte) []byte {
	out := []byte("DFE2")
	out = append(out, 2, 0) // version 2 LE
	out = append(out, 0)    // flags
	for _, s := range streams {
		out = append(out, "TRK0"...)
		var lenField [4]byte
		binio.PutU32LE(lenField[:], uint32(len(s)))
		out = append(out, lenField[:]...)
		out = append(out, s...)
	}
	return out
}

func TestDeltaDecode(t *testing.T) {
	// 10, 20, extended 256, then an index marker.
	f, err := dfi.Parse(buildFile([]byte{10, 20, 0xFF, 0x00, 0x01, 0x80}))
	require.NoError(t, err)
	require.Len(t, f.Tracks, 1)

	tr := f.Tracks[0]
	require.Equal(t, []uint64{10, 30, 30 + 256}, tr.FluxTimes)
	require.Equal(t, []uint64{30 + 256}, tr.IndexTimes)
	require.Equal(t, uint64(30+256), tr.TotalTime)
	require.Equal(t, uint32(dfi.DefaultSampleRate), tr.SampleRate)
}

func TestIndexMarkerDoesNotAdvanceTime(t *testing.T) {
	f, err := dfi.Parse(buildFile([]byte{0x80, 50, 0x80, 0x80, 50}))
	require.NoError(t, err)
	tr := f.Tracks[0]
	require.Equal(t, []uint64{50, 100}, tr.FluxTimes)
	require.Equal(t, []uint64{0, 50, 50}, tr.IndexTimes)
}

func TestReservedByteCounted(t *testing.T) {
	f, err := dfi.Parse(buildFile([]byte{10, 0x00, 10}))
	require.NoError(t, err)
	tr := f.Tracks[0]
	require.Equal(t, []uint64{10, 20}, tr.FluxTimes)
	require.Equal(t, 1, tr.ReservedBytes)
}

func TestTrackOrder(t *testing.T) {
	f, err := dfi.Parse(buildFile([]byte{1}, []byte{2}, []byte{3}, []byte{4}))
	require.NoError(t, err)
	require.Len(t, f.Tracks, 4)
	require.Equal(t, uint32(0), f.Tracks[0].Cylinder)
	require.Equal(t, uint32(0), f.Tracks[0].Head)
	require.Equal(t, uint32(0), f.Tracks[1].Cylinder)
	require.Equal(t, uint32(1), f.Tracks[1].Head)
	require.Equal(t, uint32(1), f.Tracks[2].Cylinder)
	require.Equal(t, uint32(0), f.Tracks[2].Head)
}

func TestParseRejects(t *testing.T) {
	_, err := dfi.Parse([]byte("WRONGMAGIC"))
	require.ErrorIs(t, err, dfi.ErrNotDfi)

	_, err = dfi.Parse(append(buildFile(), "TRK0\xFF\xFF"...))
	require.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	src := buildFile([]byte{10, 20, 0xFF, 0x00, 0x01, 0x80}, []byte{0x7E, 0xFF, 0x34, 0x12, 5})
	f, err := dfi.Parse(src)
	require.NoError(t, err)

	f2, err := dfi.Parse(dfi.Encode(f))
	require.NoError(t, err)
	require.Equal(t, len(f.Tracks), len(f2.Tracks))
	for i := range f.Tracks {
		require.Equal(t, f.Tracks[i].FluxTimes, f2.Tracks[i].FluxTimes, "track %d", i)
		require.Equal(t, f.Tracks[i].IndexTimes, f2.Tracks[i].IndexTimes, "track %d", i)
		require.Equal(t, f.Tracks[i].TotalTime, f2.Tracks[i].TotalTime, "track %d", i)
	}
}

func TestEncodeDeltaForms(t *testing.T) {
	tr := dfi.Track{
		FluxTimes:  []uint64{0x7E, 0x7E + 0x7F, 0x7E + 0x7F + 0xFFFF},
		SampleRate: dfi.DefaultSampleRate,
	}
	tr.TotalTime = tr.FluxTimes[len(tr.FluxTimes)-1]

	out := dfi.Encode(&dfi.File{Version: 2, Tracks: []dfi.Track{tr}})
	f, err := dfi.Parse(out)
	require.NoError(t, err)
	require.Equal(t, tr.FluxTimes, f.Tracks[0].FluxTimes)
}
