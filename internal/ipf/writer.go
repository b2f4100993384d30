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
	"bytes"
	"encoding/binary"

	"github.com/go-restruct/restruct"
	"github.com/pkg/errors"

	"github.com/uftool/uft/internal/checksum"
	"github.com/uftool/uft/pkg/binio"
)

// Writer emits an IPF container: CAPS, then INFO, then IMGE/DATA pairs.
// Record CRCs cover the header (CRC field zeroed) plus the payload. The
// writer does not regenerate SPS element streams; round-tripping an SPS
// image relies on the track's verbatim extra-data segment.
type Writer struct {
	buf     bytes.Buffer
	nextKey uint32
}

func NewWriter() *Writer {
	return &Writer{nextKey: 1}
}

// WriteHeader emits the leading CAPS record.
func (w *Writer) WriteHeader() {
	w.AddRecord(TagCaps, nil)
}

// AddRecord appends one raw record with a computed CRC.
func (w *Writer) AddRecord(tag [4]byte, payload []byte) {
	var header [recordHeaderSize]byte
	copy(header[:4], tag[:])
	binio.PutU32BE(header[4:], uint32(len(payload)))

	crc := checksum.Crc32Update(checksum.Crc32(header[:]), payload)
	binio.PutU32BE(header[8:], crc)

	w.buf.Write(header[:])
	w.buf.Write(payload)
}

// AddInfo encodes and appends the INFO record.
func (w *Writer) AddInfo(info *Info) error {
	payload, err := restruct.Pack(binary.BigEndian, info)
	if err != nil {
		return errors.Wrap(StatusBadRecord, err.Error())
	}
	if len(payload) != infoSize {
		return errors.Wrapf(StatusBadRecord, "INFO encoded to %d bytes", len(payload))
	}
	w.AddRecord(TagInfo, payload)
	return nil
}

// AddTrack appends an IMGE/DATA pair. The image record's DataKey is
// assigned by the writer; extra is the complete extra-data segment
// (descriptors plus element streams), carried verbatim.
func (w *Writer) AddTrack(im ImageRecord, bitSize uint32, extra []byte) error {
	im.DataKey = w.nextKey
	w.nextKey++

	imgePayload, err := restruct.Pack(binary.BigEndian, &im)
	if err != nil {
		return errors.Wrap(StatusBadRecord, err.Error())
	}
	if len(imgePayload) != imgeSize {
		return errors.Wrapf(StatusBadRecord, "IMGE encoded to %d bytes", len(imgePayload))
	}
	w.AddRecord(TagImge, imgePayload)

	payload := make([]byte, dataHeaderSize+len(extra))
	binio.PutU32BE(payload[0:], uint32(len(extra)))
	binio.PutU32BE(payload[4:], bitSize)
	binio.PutU32BE(payload[8:], checksum.Crc32(extra))
	binio.PutU32BE(payload[12:], im.DataKey)
	copy(payload[dataHeaderSize:], extra)
	w.AddRecord(TagData, payload)
	return nil
}

// Bytes returns the encoded container.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }
