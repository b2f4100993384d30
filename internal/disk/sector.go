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
package disk

import "github.com/pkg/errors"

// SectorReader reads one physical sector into buf, which must be exactly
// one geometry sector long. The sector id is based at the geometry's
// FirstSectorID. The caller owns buf.
type SectorReader interface {
	ReadSector(cyl, head, sector uint32, buf []byte) error
}

// SectorWriter writes one physical sector from buf. A nil writer marks a
// read-only mount.
type SectorWriter interface {
	WriteSector(cyl, head, sector uint32, buf []byte) error
}

var (
	ErrSectorRange = errors.New("sector address out of range")
	ErrShortBuffer = errors.New("buffer does not match sector size")
	ErrShortImage  = errors.New("image smaller than geometry")
)

// ImageStore exposes an in-memory raw image as sector callbacks.
type ImageStore struct {
	geo  Geometry
	data []byte
}

func NewImageStore(g Geometry, data []byte) (*ImageStore, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if uint64(len(data)) < g.DiskSize() {
		return nil, errors.Wrapf(ErrShortImage, "have %d bytes, geometry needs %d", len(data), g.DiskSize())
	}
	return &ImageStore{geo: g, data: data}, nil
}

func (s *ImageStore) Geometry() Geometry { return s.geo }

// Bytes returns the backing image.
func (s *ImageStore) Bytes() []byte { return s.data }

func (s *ImageStore) offset(cyl, head, sector uint32) (uint64, error) {
	g := s.geo
	if sector < g.FirstSectorID {
		return 0, errors.Wrapf(ErrSectorRange, "sector %d below first id %d", sector, g.FirstSectorID)
	}
	sec := sector - g.FirstSectorID
	if cyl >= g.Cylinders || head >= g.Heads || sec >= g.SectorsPerTrack {
		return 0, errors.Wrapf(ErrSectorRange, "chs %d/%d/%d", cyl, head, sector)
	}
	track := uint64(cyl)*uint64(g.Heads) + uint64(head)
	return (track*uint64(g.SectorsPerTrack) + uint64(sec)) * uint64(g.SectorSize), nil
}

func (s *ImageStore) ReadSector(cyl, head, sector uint32, buf []byte) error {
	if uint32(len(buf)) != s.geo.SectorSize {
		return ErrShortBuffer
	}
	off, err := s.offset(cyl, head, sector)
	if err != nil {
		return err
	}
	copy(buf, s.data[off:off+uint64(s.geo.SectorSize)])
	return nil
}

func (s *ImageStore) WriteSector(cyl, head, sector uint32, buf []byte) error {
	if uint32(len(buf)) != s.geo.SectorSize {
		return ErrShortBuffer
	}
	off, err := s.offset(cyl, head, sector)
	if err != nil {
		return err
	}
	copy(s.data[off:off+uint64(s.geo.SectorSize)], buf)
	return nil
}
