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
package ipf

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"
	"github.com/pkg/errors"

	"github.com/uftool/uft/internal/checksum"
	"github.com/uftool/uft/pkg/binio"
)

// ParseOptions tune a parse run.
type ParseOptions struct {
	// Strict escalates CRC mismatches and truncation from warnings to
	// errors.
	Strict bool
}

// File is a fully parsed IPF container.
type File struct {
	Records  []Record
	Info     *Info
	Tracks   []*Track
	Warnings Warnings

	UnknownRecords int
	KeyMismatches  int

	byKey map[uint32]*Track
}

// TrackAt returns the track for (track, side), or nil.
func (f *File) TrackAt(track, side uint32) *Track {
	for _, t := range f.Tracks {
		if t.Image.Track == track && t.Image.Side == side {
			return t
		}
	}
	return nil
}

// Protection lists per-track copy-protection markers. The decoder reports
// them without interpreting the schemes.
func (f *File) Protection() []ProtectionSummary {
	out := make([]ProtectionSummary, 0, len(f.Tracks))
	for _, t := range f.Tracks {
		out = append(out, ProtectionSummary{
			Track:     t.Image.Track,
			Side:      t.Image.Side,
			Fuzzy:     t.Image.Fuzzy(),
			Protected: t.Image.Protected(),
			Density:   t.Image.Density,
		})
	}
	return out
}

// Probe reports the container confidence for a leading "CAPS" magic.
func Probe(data []byte) int {
	if len(data) >= 4 && data[0] == 'C' && data[1] == 'A' && data[2] == 'P' && data[3] == 'S' {
		return 95
	}
	return -1
}

// crcMatches accepts both CRC conventions in the wild: payload-only, and
// record header plus payload with the CRC field zeroed.
func crcMatches(header, payload []byte, stored uint32) bool {
	if checksum.Crc32(payload) == stored {
		return true
	}
	var zeroed [recordHeaderSize]byte
	copy(zeroed[:], header)
	binio.PutU32BE(zeroed[8:], 0)
	return checksum.Crc32Update(checksum.Crc32(zeroed[:]), payload) == stored
}

// Parse decodes a complete IPF container held in memory.
func Parse(data []byte, opts ParseOptions) (*File, error) {
	if Probe(data) < 0 {
		return nil, StatusNotIpf
	}

	f := &File{byKey: map[uint32]*Track{}}
	cur := binio.NewCursor(data)

	first := true
	for cur.Remaining() >= recordHeaderSize {
		header := cur.Bytes(recordHeaderSize)
		var rec Record
		copy(rec.Tag[:], header[:4])
		rec.Length = binio.U32BE(header[4:])
		rec.Crc = binio.U32BE(header[8:])

		if int(rec.Length) > cur.Remaining() {
			f.Warnings |= WarnTruncated
			if opts.Strict {
				return nil, errors.Wrapf(StatusTruncated, "record %q wants %d bytes, %d left",
					rec.Tag[:], rec.Length, cur.Remaining())
			}
			break
		}
		rec.Payload = cur.Bytes(int(rec.Length))

		if first {
			if rec.Tag != TagCaps {
				return nil, StatusNotIpf
			}
			first = false
		}

		if rec.Crc != 0 && !crcMatches(header, rec.Payload, rec.Crc) {
			f.Warnings |= WarnCrcMismatch
			if opts.Strict {
				return nil, errors.Wrapf(StatusBadCrc, "record %q", rec.Tag[:])
			}
		}

		f.Records = append(f.Records, rec)

		switch rec.Tag {
		case TagCaps:
			// File magic; empty payload.
		case TagInfo:
			if f.Info == nil {
				info, err := parseInfo(rec.Payload)
				if err != nil {
					return nil, err
				}
				f.Info = info
			}
		case TagImge:
			im, err := parseImge(rec.Payload)
			if err != nil {
				return nil, err
			}
			t := &Track{Image: *im}
			f.Tracks = append(f.Tracks, t)
			f.byKey[im.DataKey] = t
		case TagData:
			if err := f.parseData(rec, cur, opts); err != nil {
				return nil, err
			}
		default:
			if !tagKnown(rec.Tag) {
				f.UnknownRecords++
				f.Warnings |= WarnUnknownRecords
			}
		}
	}

	if cur.Remaining() > 0 && cur.Remaining() < recordHeaderSize {
		f.Warnings |= WarnTruncated
		if opts.Strict {
			return nil, errors.Wrap(StatusTruncated, "trailing bytes shorter than a record header")
		}
	}

	if f.Info == nil {
		f.Warnings |= WarnMissingInfo
	}
	if len(f.Tracks) == 0 {
		f.Warnings |= WarnMissingImge
	}
	return f, nil
}

func parseInfo(payload []byte) (*Info, error) {
	if len(payload) < infoSize {
		return nil, errors.Wrapf(StatusBadRecord, "INFO payload %d bytes", len(payload))
	}
	var info Info
	if err := restruct.Unpack(payload[:infoSize], binary.BigEndian, &info); err != nil {
		return nil, errors.Wrap(StatusBadRecord, err.Error())
	}
	return &info, nil
}

func parseImge(payload []byte) (*ImageRecord, error) {
	if len(payload) < imgeSize {
		return nil, errors.Wrapf(StatusBadRecord, "IMGE payload %d bytes", len(payload))
	}
	var im ImageRecord
	if err := restruct.Unpack(payload[:imgeSize], binary.BigEndian, &im); err != nil {
		return nil, errors.Wrap(StatusBadRecord, err.Error())
	}
	return &im, nil
}

// parseData decodes a DATA record. The extra-data segment either rides
// inside the record payload (writer convention here) or follows the record
// in the stream (seen in the wild); both are handled.
func (f *File) parseData(rec Record, cur *binio.Cursor, opts ParseOptions) error {
	if len(rec.Payload) < dataHeaderSize {
		return errors.Wrapf(StatusBadRecord, "DATA payload %d bytes", len(rec.Payload))
	}
	var dh DataHeader
	dh.Length = binio.U32BE(rec.Payload[0:])
	dh.BitSize = binio.U32BE(rec.Payload[4:])
	dh.Crc = binio.U32BE(rec.Payload[8:])
	dh.Key = binio.U32BE(rec.Payload[12:])

	var extra []byte
	if int(dh.Length) <= len(rec.Payload)-dataHeaderSize {
		extra = rec.Payload[dataHeaderSize : dataHeaderSize+int(dh.Length)]
	} else {
		if int(dh.Length) > cur.Remaining() {
			f.Warnings |= WarnTruncated
			if opts.Strict {
				return errors.Wrapf(StatusTruncated, "DATA extra segment wants %d bytes", dh.Length)
			}
			return nil
		}
		extra = cur.Bytes(int(dh.Length))
	}

	track, ok := f.byKey[dh.Key]
	if !ok {
		f.KeyMismatches++
		if opts.Strict {
			return errors.Wrapf(StatusKeyMismatch, "data key %d", dh.Key)
		}
		return nil
	}
	track.Header = dh
	track.ExtraData = extra

	return f.parseBlocks(track, extra)
}

func (f *File) parseBlocks(track *Track, extra []byte) error {
	count := int(track.Image.BlockCount)
	need := count * blockDescriptorSize
	if need > len(extra) {
		return errors.Wrapf(StatusBadRecord, "%d blocks need %d descriptor bytes, have %d",
			count, need, len(extra))
	}
	track.RawDescriptors = extra[:need]

	sps := f.Info != nil && f.Info.EncoderType == EncoderSps

	for i := 0; i < count; i++ {
		raw := extra[i*blockDescriptorSize:]
		desc := BlockDescriptor{
			DataBits:    binio.U32BE(raw[0:]),
			GapBits:     binio.U32BE(raw[4:]),
			EncoderType: binio.U32BE(raw[16:]),
			BlockFlags:  binio.U32BE(raw[20:]),
			GapDefault:  binio.U32BE(raw[24:]),
			DataOffset:  binio.U32BE(raw[28:]),
		}
		u3 := binio.U32BE(raw[8:])
		u4 := binio.U32BE(raw[12:])
		if sps {
			desc.Layout = SpsLayout{GapOffset: u3, CellType: u4}
		} else {
			desc.Layout = CapsLayout{DataBytes: u3, GapBytes: u4}
		}

		block := Block{Descriptor: desc}
		if sps {
			if err := parseSpsBlock(&block, extra); err != nil {
				return err
			}
		}
		track.Blocks = append(track.Blocks, block)
	}
	return nil
}

func parseSpsBlock(block *Block, extra []byte) error {
	desc := &block.Descriptor
	layout := desc.Layout.(SpsLayout)

	if (desc.HasForwardGap() || desc.HasBackwardGap()) && layout.GapOffset > 0 {
		elems, err := parseGapStream(extra, int(layout.GapOffset), desc.HasBackwardGap())
		if err != nil {
			return err
		}
		block.GapElements = elems
	}

	if desc.DataBits > 0 && desc.DataOffset > 0 {
		elems, err := parseDataStream(extra, int(desc.DataOffset), desc.SizesInBits())
		if err != nil {
			return err
		}
		block.DataElements = elems
	}
	return nil
}

// parseGapStream walks gap elements until the 0x00 sentinel. With a
// backward-gap flag, a second stream follows the first sentinel and its
// elements are marked Backward.
func parseGapStream(extra []byte, offset int, backward bool) ([]GapElement, error) {
	if offset >= len(extra) {
		return nil, errors.Wrapf(StatusBadRecord, "gap stream offset %d beyond segment", offset)
	}
	cur := binio.NewCursor(extra[offset:])

	var out []GapElement
	dir := GapForward
	for {
		hdr := cur.U8()
		if cur.Err() != nil {
			return nil, errors.Wrap(StatusTruncated, "gap stream")
		}
		if hdr == 0 {
			if dir == GapForward && backward {
				dir = GapBackward
				continue
			}
			break
		}

		sizeWidth := int(hdr >> 5)
		elemType := GapElemType(hdr & 0x1F)

		var size uint32
		for i := 0; i < sizeWidth; i++ {
			size = size<<8 | uint32(cur.U8())
		}
		if cur.Err() != nil {
			return nil, errors.Wrap(StatusTruncated, "gap stream size")
		}

		elem := GapElement{Direction: dir, Type: elemType, SizeBits: size}
		if elemType == GapSampleLength {
			sample := cur.Bytes(int(size / 8))
			if cur.Err() != nil {
				return nil, errors.Wrap(StatusTruncated, "gap sample")
			}
			if len(sample) > 0 {
				elem.Value = sample[0]
			}
		}
		out = append(out, elem)
	}
	return out, nil
}

// parseDataStream walks data elements until the 0x00 sentinel. Sizes are
// bits when the block flag says so, bytes otherwise; fuzzy elements carry
// no samples.
func parseDataStream(extra []byte, offset int, sizesInBits bool) ([]DataElement, error) {
	if offset >= len(extra) {
		return nil, errors.Wrapf(StatusBadRecord, "data stream offset %d beyond segment", offset)
	}
	cur := binio.NewCursor(extra[offset:])

	var out []DataElement
	for {
		hdr := cur.U8()
		if cur.Err() != nil {
			return nil, errors.Wrap(StatusTruncated, "data stream")
		}
		if hdr == 0 {
			break
		}

		sizeWidth := int(hdr >> 5)
		elemType := DataElemType(hdr & 0x1F)
		if elemType > DataFuzzy {
			return nil, errors.Wrapf(StatusBadRecord, "data element type %d", elemType)
		}

		var size uint32
		for i := 0; i < sizeWidth; i++ {
			size = size<<8 | uint32(cur.U8())
		}
		if cur.Err() != nil {
			return nil, errors.Wrap(StatusTruncated, "data stream size")
		}

		sizeBits := size
		if !sizesInBits {
			sizeBits = size * 8
		}
		elem := DataElement{Type: elemType, SizeBits: sizeBits}
		if elemType != DataFuzzy {
			n := int((sizeBits + 7) / 8)
			elem.Sample = cur.Bytes(n)
			if cur.Err() != nil {
				return nil, errors.Wrap(StatusTruncated, "data sample")
			}
		}
		out = append(out, elem)
	}
	return out, nil
}
