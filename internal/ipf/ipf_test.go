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
package ipf_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uftool/uft/internal/checksum"
	"github.com/uftool/uft/internal/ipf"
	"github.com/uftool/uft/pkg/binio"
)

func testInfo() *ipf.Info {
	return &ipf.Info{
		MediaType:   1,
		EncoderType: ipf.EncoderSps,
		EncoderRev:  1,
		FileKey:     42,
		MinTrack:    0,
		MaxTrack:    83,
		MinSide:     0,
		MaxSide:     1,
		Platforms:   [4]uint32{ipf.PlatformAtariST, 0, 0, 0},
	}
}

func TestInfoRoundTrip(t *testing.T) {
	w := ipf.NewWriter()
	w.WriteHeader()
	require.NoError(t, w.AddInfo(testInfo()))

	f, err := ipf.Parse(w.Bytes(), ipf.ParseOptions{Strict: true})
	require.NoError(t, err)

	require.NotNil(t, f.Info)
	require.Equal(t, uint32(ipf.EncoderSps), f.Info.EncoderType)
	require.Equal(t, uint32(ipf.PlatformAtariST), f.Info.Platforms[0])
	require.Equal(t, uint32(42), f.Info.FileKey)
	require.Zero(t, f.Warnings&ipf.WarnCrcMismatch)
}

func TestProbe(t *testing.T) {
	require.Equal(t, 95, ipf.Probe([]byte("CAPS....")))
	require.Equal(t, -1, ipf.Probe([]byte("SCP.....")))
	_, err := ipf.Parse([]byte("NOPE"), ipf.ParseOptions{})
	require.ErrorIs(t, err, ipf.StatusNotIpf)
}

func TestUnknownRecordPreserved(t *testing.T) {
	w := ipf.NewWriter()
	w.WriteHeader()
	require.NoError(t, w.AddInfo(testInfo()))
	w.AddRecord([4]byte{'X', 'Y', 'Z', 'W'}, []byte("mystery payload"))

	f, err := ipf.Parse(w.Bytes(), ipf.ParseOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, f.UnknownRecords)
	require.True(t, f.Warnings.Has(ipf.WarnUnknownRecords))

	last := f.Records[len(f.Records)-1]
	require.Equal(t, [4]byte{'X', 'Y', 'Z', 'W'}, last.Tag)
	require.Equal(t, []byte("mystery payload"), last.Payload)
}

func TestBothCrcConventions(t *testing.T) {
	payload := []byte("some record payload")

	build := func(headerCrc bool) []byte {
		// Hand-rolled CAPS + one TEXT record under each CRC convention.
		w := ipf.NewWriter()
		w.WriteHeader()
		base := w.Bytes()

		rec := make([]byte, 12+len(payload))
		copy(rec[:4], "TEXT")
		binio.PutU32BE(rec[4:], uint32(len(payload)))
		copy(rec[12:], payload)
		if headerCrc {
			crc := checksum.Crc32Update(checksum.Crc32(rec[:12]), payload)
			binio.PutU32BE(rec[8:], crc)
		} else {
			binio.PutU32BE(rec[8:], checksum.Crc32(payload))
		}
		return append(append([]byte{}, base...), rec...)
	}

	for _, headerCrc := range []bool{true, false} {
		f, err := ipf.Parse(build(headerCrc), ipf.ParseOptions{Strict: true})
		require.NoError(t, err, "headerCrc=%v", headerCrc)
		require.Zero(t, f.Warnings&ipf.WarnCrcMismatch)
	}
}

func TestCrcMismatch(t *testing.T) {
	w := ipf.NewWriter()
	w.WriteHeader()
	require.NoError(t, w.AddInfo(testInfo()))
	data := w.Bytes()
	data[len(data)-1] ^= 0xFF // corrupt the INFO payload

	f, err := ipf.Parse(data, ipf.ParseOptions{})
	require.NoError(t, err)
	require.True(t, f.Warnings.Has(ipf.WarnCrcMismatch))

	_, err = ipf.Parse(data, ipf.ParseOptions{Strict: true})
	require.ErrorIs(t, err, ipf.StatusBadCrc)
}

func TestTruncated(t *testing.T) {
	w := ipf.NewWriter()
	w.WriteHeader()
	require.NoError(t, w.AddInfo(testInfo()))
	data := w.Bytes()[:20] // cut inside the INFO record

	f, err := ipf.Parse(data, ipf.ParseOptions{})
	require.NoError(t, err)
	require.True(t, f.Warnings.Has(ipf.WarnTruncated))

	_, err = ipf.Parse(data, ipf.ParseOptions{Strict: true})
	require.ErrorIs(t, err, ipf.StatusTruncated)
}

func TestMissingInfoAndImgeWarnings(t *testing.T) {
	w := ipf.NewWriter()
	w.WriteHeader()
	f, err := ipf.Parse(w.Bytes(), ipf.ParseOptions{})
	require.NoError(t, err)
	require.True(t, f.Warnings.Has(ipf.WarnMissingInfo))
	require.True(t, f.Warnings.Has(ipf.WarnMissingImge))
}

// buildSpsExtra assembles a one-block extra-data segment: descriptor,
// then a data element stream and a gap element stream.
func buildSpsExtra(t *testing.T) []byte {
	t.Helper()

	// Data stream: Sync of 2 bytes, Data of 2 bytes, Fuzzy of 8 bits, end.
	dataStream := []byte{
		0x20 | byte(ipf.DataSync), 2, 0xA1, 0xA1,
		0x20 | byte(ipf.DataData), 2, 0xDE, 0xAD,
		0x20 | byte(ipf.DataFuzzy), 1,
		0x00,
	}
	// Gap stream: forward GapLength 16 bits, forward SampleLength 8 bits
	// with one sample byte, sentinel, then one backward GapLength.
	gapStream := []byte{
		0x20 | byte(ipf.GapLength), 16,
		0x20 | byte(ipf.GapSampleLength), 8, 0x4E,
		0x00,
		0x20 | byte(ipf.GapLength), 32,
		0x00,
	}

	extra := make([]byte, 32)
	dataOff := len(extra)
	extra = append(extra, dataStream...)
	gapOff := len(extra)
	extra = append(extra, gapStream...)

	binio.PutU32BE(extra[0:], 32)               // data bits
	binio.PutU32BE(extra[4:], 48)               // gap bits
	binio.PutU32BE(extra[8:], uint32(gapOff))   // SPS: gap offset
	binio.PutU32BE(extra[12:], 0)               // SPS: cell type
	binio.PutU32BE(extra[16:], ipf.BlockEncMfm) // encoder type
	binio.PutU32BE(extra[20:], ipf.BlockFlagForwardGap|ipf.BlockFlagBackwardGap)
	binio.PutU32BE(extra[24:], 0x4E)            // gap default
	binio.PutU32BE(extra[28:], uint32(dataOff)) // data offset
	return extra
}

func TestSpsTrackRoundTrip(t *testing.T) {
	extra := buildSpsExtra(t)

	w := ipf.NewWriter()
	w.WriteHeader()
	require.NoError(t, w.AddInfo(testInfo()))
	im := ipf.ImageRecord{
		Track:      0,
		Side:       0,
		Density:    ipf.DensityCopylockST,
		TrackBits:  100000,
		BlockCount: 1,
		TrackFlags: ipf.TrackFlagFuzzy,
	}
	require.NoError(t, w.AddTrack(im, 100000, extra))

	f, err := ipf.Parse(w.Bytes(), ipf.ParseOptions{Strict: true})
	require.NoError(t, err)
	require.Len(t, f.Tracks, 1)

	track := f.TrackAt(0, 0)
	require.NotNil(t, track)
	require.Equal(t, extra, track.ExtraData)
	require.Equal(t, extra[:32], track.RawDescriptors)
	require.Len(t, track.Blocks, 1)

	block := track.Blocks[0]
	layout, ok := block.Descriptor.Layout.(ipf.SpsLayout)
	require.True(t, ok)
	require.Equal(t, uint32(0x4E), block.Descriptor.GapDefault)
	require.NotZero(t, layout.GapOffset)

	// Data stream: sizes were in bytes (flag unset), so bits are x8.
	require.Len(t, block.DataElements, 3)
	require.Equal(t, ipf.DataSync, block.DataElements[0].Type)
	require.Equal(t, uint32(16), block.DataElements[0].SizeBits)
	require.Equal(t, []byte{0xA1, 0xA1}, block.DataElements[0].Sample)
	require.Equal(t, ipf.DataData, block.DataElements[1].Type)
	require.Equal(t, ipf.DataFuzzy, block.DataElements[2].Type)
	require.Nil(t, block.DataElements[2].Sample)

	// Gap stream: two forward elements, one backward.
	require.Len(t, block.GapElements, 3)
	require.Equal(t, ipf.GapForward, block.GapElements[0].Direction)
	require.Equal(t, uint32(16), block.GapElements[0].SizeBits)
	require.Equal(t, ipf.GapSampleLength, block.GapElements[1].Type)
	require.Equal(t, byte(0x4E), block.GapElements[1].Value)
	require.Equal(t, ipf.GapBackward, block.GapElements[2].Direction)

	// Protection summary reflects density and fuzzy flag.
	prot := f.Protection()
	require.Len(t, prot, 1)
	require.True(t, prot[0].Fuzzy)
	require.True(t, prot[0].Protected)
}

func TestCapsLayoutDescriptor(t *testing.T) {
	info := testInfo()
	info.EncoderType = ipf.EncoderCaps

	extra := make([]byte, 32)
	binio.PutU32BE(extra[8:], 4096) // CAPS: data bytes
	binio.PutU32BE(extra[12:], 512) // CAPS: gap bytes
	binio.PutU32BE(extra[16:], ipf.BlockEncMfm)

	w := ipf.NewWriter()
	w.WriteHeader()
	require.NoError(t, w.AddInfo(info))
	require.NoError(t, w.AddTrack(ipf.ImageRecord{Track: 5, Side: 1, BlockCount: 1}, 0, extra))

	f, err := ipf.Parse(w.Bytes(), ipf.ParseOptions{Strict: true})
	require.NoError(t, err)

	track := f.TrackAt(5, 1)
	require.NotNil(t, track)
	layout, ok := track.Blocks[0].Descriptor.Layout.(ipf.CapsLayout)
	require.True(t, ok)
	require.Equal(t, uint32(4096), layout.DataBytes)
	require.Equal(t, uint32(512), layout.GapBytes)
}

func TestDataKeyMismatch(t *testing.T) {
	// A DATA record whose key has no IMGE.
	w := ipf.NewWriter()
	w.WriteHeader()
	require.NoError(t, w.AddInfo(testInfo()))

	payload := make([]byte, 16)
	binio.PutU32BE(payload[12:], 999)
	w.AddRecord(ipf.TagData, payload)

	f, err := ipf.Parse(w.Bytes(), ipf.ParseOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, f.KeyMismatches)

	_, err = ipf.Parse(w.Bytes(), ipf.ParseOptions{Strict: true})
	require.ErrorIs(t, err, ipf.StatusKeyMismatch)
}
