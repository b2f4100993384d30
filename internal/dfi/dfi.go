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

// Package dfi decodes and writes DiscFerret DFI containers: a "DFE2" file
// header followed by per-track records of delta-encoded flux transitions
// with embedded index-pulse markers.
package dfi

import (
	"bytes"
	"encoding/binary"

	"github.com/go-restruct/restruct"
	"github.com/pkg/errors"

	"github.com/uftool/uft/pkg/binio"
)

// DefaultSampleRate is assumed when the capture rate is not otherwise
// known: 100 MHz.
const DefaultSampleRate = 100_000_000

var (
	fileMagic  = []byte("DFE2")
	trackMagic = []byte("TRK0")
)

var (
	ErrNotDfi    = errors.New("not a DFI file")
	ErrTruncated = errors.New("DFI file truncated")
)

// fileHeader is the little-endian container header.
type fileHeader struct {
	Magic   [4]byte
	Version uint16
	Flags   uint8
}

const fileHeaderSize = 7

// Track is one decoded track: absolute flux and index times in ticks of
// the sample rate.
type Track struct {
	Cylinder   uint32
	Head       uint32
	SampleRate uint32
	FluxTimes  []uint64
	IndexTimes []uint64
	TotalTime  uint64

	// ReservedBytes counts 0x00 bytes passed through; v2 leaves them
	// unassigned, so callers can reject streams that carry them.
	ReservedBytes int
}

// File is a parsed DFI container. Track order on the wire is
// cylinder-major, head-alternating.
type File struct {
	Version uint16
	Flags   uint8
	Tracks  []Track
}

// Probe reports the container confidence for a leading "DFE2" magic.
func Probe(data []byte) int {
	if bytes.HasPrefix(data, fileMagic) {
		return 95
	}
	return -1
}

// Parse decodes a complete DFI container.
func Parse(data []byte) (*File, error) {
	if !bytes.HasPrefix(data, fileMagic) {
		return nil, ErrNotDfi
	}
	if len(data) < fileHeaderSize {
		return nil, ErrTruncated
	}

	var hdr fileHeader
	if err := restruct.Unpack(data[:fileHeaderSize], binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(ErrNotDfi, err.Error())
	}

	f := &File{Version: hdr.Version, Flags: hdr.Flags}
	cur := binio.NewCursor(data[fileHeaderSize:])

	index := uint32(0)
	for cur.Remaining() > 0 {
		magic := cur.Bytes(4)
		if cur.Err() != nil || !bytes.Equal(magic, trackMagic) {
			return nil, errors.Wrapf(ErrTruncated, "track %d header", index)
		}
		length := cur.U32LE()
		stream := cur.Bytes(int(length))
		if cur.Err() != nil {
			return nil, errors.Wrapf(ErrTruncated, "track %d stream", index)
		}

		track := decodeTrack(stream)
		track.Cylinder = index / 2
		track.Head = index & 1
		track.SampleRate = DefaultSampleRate
		f.Tracks = append(f.Tracks, track)
		index++
	}
	return f, nil
}

// decodeTrack walks the delta stream. A byte with the high bit set records
// an index pulse at the running time without advancing it; 0xFF is
// followed by a 16-bit little-endian extended delta; 0x00 is reserved and
// passed through.
func decodeTrack(stream []byte) Track {
	var t Track
	var now uint64

	for i := 0; i < len(stream); i++ {
		b := stream[i]
		switch {
		case b == 0x00:
			t.ReservedBytes++
		case b == 0xFF:
			if i+2 >= len(stream) {
				i = len(stream)
				break
			}
			delta := uint64(binio.U16LE(stream[i+1:]))
			i += 2
			now += delta
			t.FluxTimes = append(t.FluxTimes, now)
		case b&0x80 != 0:
			t.IndexTimes = append(t.IndexTimes, now)
		default:
			now += uint64(b)
			t.FluxTimes = append(t.FluxTimes, now)
		}
	}
	t.TotalTime = now
	return t
}

// Encode writes the container back out. Deltas 1..0x7E use the one-byte
// form and all others, zero included, the extended form, saturating at
// 0xFFFF; index markers are interleaved when their time is reached.
func Encode(f *File) []byte {
	var buf bytes.Buffer
	buf.Write(fileMagic)

	var hdr [3]byte
	binio.PutU16LE(hdr[:2], f.Version)
	hdr[2] = f.Flags
	buf.Write(hdr[:])

	for _, t := range f.Tracks {
		stream := encodeTrack(&t)

		buf.Write(trackMagic)
		var lenField [4]byte
		binio.PutU32LE(lenField[:], uint32(len(stream)))
		buf.Write(lenField[:])
		buf.Write(stream)
	}
	return buf.Bytes()
}

func encodeTrack(t *Track) []byte {
	var out []byte
	var prev uint64
	idx := 0

	emitIndexUpTo := func(now uint64) {
		for idx < len(t.IndexTimes) && t.IndexTimes[idx] <= now {
			out = append(out, 0x80)
			idx++
		}
	}

	emitIndexUpTo(prev)
	for _, flux := range t.FluxTimes {
		delta := flux - prev
		if delta > 0xFFFF {
			delta = 0xFFFF // saturate
		}
		if delta > 0 && delta < 0x7F {
			out = append(out, byte(delta))
		} else {
			var ext [3]byte
			ext[0] = 0xFF
			binio.PutU16LE(ext[1:], uint16(delta))
			out = append(out, ext[:]...)
		}
		prev = flux
		emitIndexUpTo(prev)
	}
	return out
}
