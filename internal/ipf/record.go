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

// Package ipf decodes and writes IPF/CAPS preservation containers: a
// stream of CRC-protected big-endian records carrying per-track block
// descriptors and, for SPS-encoded images, gap and data element streams.
package ipf

// recordHeaderSize is the fixed record header: tag, length, CRC.
const recordHeaderSize = 12

// Record tags.
var (
	TagCaps = [4]byte{'C', 'A', 'P', 'S'}
	TagInfo = [4]byte{'I', 'N', 'F', 'O'}
	TagImge = [4]byte{'I', 'M', 'G', 'E'}
	TagData = [4]byte{'D', 'A', 'T', 'A'}
	TagTrck = [4]byte{'T', 'R', 'C', 'K'}
	TagCtei = [4]byte{'C', 'T', 'E', 'I'}
	TagCtex = [4]byte{'C', 'T', 'E', 'X'}
)

var knownTags = [][4]byte{
	TagCaps, TagInfo, TagImge, TagData, TagTrck, TagCtei, TagCtex,
	{'D', 'U', 'M', 'P'}, {'C', 'O', 'M', 'M'}, {'T', 'E', 'X', 'T'}, {'U', 'S', 'E', 'R'},
}

func tagKnown(tag [4]byte) bool {
	for _, t := range knownTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Record is one raw container record. Unknown tags are preserved here
// untouched.
type Record struct {
	Tag     [4]byte
	Length  uint32
	Crc     uint32
	Payload []byte
}

// Encoder types from the INFO record.
const (
	EncoderCaps  = 1
	EncoderSps   = 2
	EncoderCtRaw = 3
)

// Platform tags from the INFO record.
const (
	PlatformNone       = 0
	PlatformAmiga      = 1
	PlatformAtariST    = 2
	PlatformPC         = 3
	PlatformAmstradCPC = 4
	PlatformSpectrum   = 5
	PlatformSamCoupe   = 6
	PlatformArchimedes = 7
	PlatformC64        = 8
	PlatformAtari8     = 9
)

// infoSize is the INFO payload: 24 big-endian words.
const infoSize = 96

// Info is the parsed INFO record.
type Info struct {
	MediaType    uint32
	EncoderType  uint32
	EncoderRev   uint32
	FileKey      uint32
	FileRev      uint32
	Origin       uint32
	MinTrack     uint32
	MaxTrack     uint32
	MinSide      uint32
	MaxSide      uint32
	CreationDate uint32 // YYYYMMDD
	CreationTime uint32 // HHMMSSmmm
	Platforms    [4]uint32
	DiskNumber   uint32
	CreatorID    uint32
	Reserved     [6]uint32
}

// Density classes carried by IMGE records. Values above Auto mark
// copy-protection schemes.
const (
	DensityNoise = iota + 1
	DensityAuto
	DensityCopylockAmiga
	DensityCopylockAmigaNew
	DensityCopylockST
	DensitySpeedlockAmiga
	DensitySpeedlockAmigaOld
	DensityAdamBrierley
	DensityAdamBrierleyKey
)

// Track flag bits.
const TrackFlagFuzzy = 1 << 0

// imgeSize is the IMGE payload: 20 big-endian words.
const imgeSize = 80

// ImageRecord is one per-track/side descriptor.
type ImageRecord struct {
	Track          uint32
	Side           uint32
	Density        uint32
	SignalType     uint32
	TrackBytes     uint32
	StartBytePos   uint32
	StartBitPos    uint32
	DataBits       uint32
	GapBits        uint32
	TrackBits      uint32
	BlockCount     uint32
	EncoderProcess uint32
	TrackFlags     uint32
	DataKey        uint32
	Reserved       [6]uint32
}

// Fuzzy reports the fuzzy-bits track flag.
func (im *ImageRecord) Fuzzy() bool { return im.TrackFlags&TrackFlagFuzzy != 0 }

// Protected reports whether the density class marks a known
// copy-protection scheme.
func (im *ImageRecord) Protected() bool {
	switch im.Density {
	case DensityCopylockAmiga, DensityCopylockAmigaNew, DensityCopylockST,
		DensitySpeedlockAmiga, DensitySpeedlockAmigaOld,
		DensityAdamBrierley, DensityAdamBrierleyKey:
		return true
	}
	return false
}

// dataHeaderSize is the DATA payload header preceding the extra-data
// segment.
const dataHeaderSize = 16

// DataHeader links a DATA record's extra-data segment to its IMGE.
type DataHeader struct {
	Length  uint32 // extra-data bytes
	BitSize uint32
	Crc     uint32
	Key     uint32
}

// Block descriptor flags.
const (
	BlockFlagForwardGap  = 1 << 0
	BlockFlagBackwardGap = 1 << 1
	BlockFlagBitSizes    = 1 << 2
)

// Cell encoder types inside block descriptors.
const (
	BlockEncMfm = 1
	BlockEncRaw = 2
)

// blockDescriptorSize is one descriptor: 8 big-endian words.
const blockDescriptorSize = 32

// BlockLayout is the encoder-dependent reading of the descriptor's union
// words. Exactly one interpretation exists per file, chosen by the INFO
// encoder type.
type BlockLayout interface {
	isBlockLayout()
}

// CapsLayout carries explicit byte counts (CAPS encoder).
type CapsLayout struct {
	DataBytes uint32
	GapBytes  uint32
}

// SpsLayout points into the extra-data segment (SPS encoder).
type SpsLayout struct {
	GapOffset uint32
	CellType  uint32
}

func (CapsLayout) isBlockLayout() {}
func (SpsLayout) isBlockLayout()  {}

// BlockDescriptor is one block of a track's data stream.
type BlockDescriptor struct {
	DataBits    uint32
	GapBits     uint32
	Layout      BlockLayout
	EncoderType uint32
	BlockFlags  uint32
	GapDefault  uint32
	DataOffset  uint32
}

func (b *BlockDescriptor) HasForwardGap() bool  { return b.BlockFlags&BlockFlagForwardGap != 0 }
func (b *BlockDescriptor) HasBackwardGap() bool { return b.BlockFlags&BlockFlagBackwardGap != 0 }
func (b *BlockDescriptor) SizesInBits() bool    { return b.BlockFlags&BlockFlagBitSizes != 0 }

// Gap element stream types.
type GapDirection int

const (
	GapForward GapDirection = iota
	GapBackward
)

type GapElemType int

const (
	GapLength GapElemType = iota + 1
	GapSampleLength
)

// GapElement is one decoded gap-stream element.
type GapElement struct {
	Direction GapDirection
	Type      GapElemType
	SizeBits  uint32
	Value     byte // representative fill byte for sample elements
}

// Data element stream types. End is the 0x00 stream sentinel.
type DataElemType int

const (
	DataEnd DataElemType = iota
	DataSync
	DataData
	DataIGap
	DataRaw
	DataFuzzy
)

// DataElement is one decoded data-stream element. Fuzzy elements carry no
// sample bytes.
type DataElement struct {
	Type     DataElemType
	SizeBits uint32
	Sample   []byte
}

// Block couples a descriptor with its decoded element streams.
type Block struct {
	Descriptor   BlockDescriptor
	DataElements []DataElement
	GapElements  []GapElement
}

// Track is the structured view of one IMGE/DATA pair.
type Track struct {
	Image  ImageRecord
	Header DataHeader
	Blocks []Block

	// RawDescriptors keeps the descriptor bytes verbatim so SPS images
	// round-trip without regenerating element streams.
	RawDescriptors []byte
	ExtraData      []byte
}

// ProtectionSummary describes copy-protection markers on one track.
type ProtectionSummary struct {
	Track     uint32
	Side      uint32
	Fuzzy     bool
	Protected bool
	Density   uint32
}
