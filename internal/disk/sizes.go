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

// Caps are the capability bits a format family carries. A family without
// CapWrite is read-only at the gate.
type Caps uint8

const (
	CapRead Caps = 1 << iota
	CapWrite
	CapPhysical
	CapLogical
	CapProtected
)

func (c Caps) Has(f Caps) bool { return c&f == f }

const capRW = CapRead | CapWrite | CapPhysical | CapLogical

// CpmSystem tags a geometry fingerprint with the CP/M machine family it
// most likely belongs to.
type CpmSystem int

const (
	SystemNone CpmSystem = iota
	SystemKaypro
	SystemOsborne
	SystemAmstrad
	SystemIBM8SD
	SystemC128
	SystemSpectrumPlus3
)

func (s CpmSystem) String() string {
	switch s {
	case SystemKaypro:
		return "Kaypro"
	case SystemOsborne:
		return "Osborne"
	case SystemAmstrad:
		return "Amstrad"
	case SystemIBM8SD:
		return "IBM 8\" SD"
	case SystemC128:
		return "Commodore 128"
	case SystemSpectrumPlus3:
		return "Spectrum +3"
	}
	return "generic"
}

// ImageClass is a known raw-image size with its canonical geometry.
// Zoned formats (Commodore GCR) carry the outer-zone geometry as a nominal
// value; their Size field is authoritative.
type ImageClass struct {
	Name    string
	Machine string
	Size    uint64
	Geom    Geometry
	Caps    Caps
	Cpm     CpmSystem
}

func geo(secSize, spt, heads, cyls, first uint32) Geometry {
	return Geometry{
		SectorSize:      secSize,
		SectorsPerTrack: spt,
		Heads:           heads,
		Cylinders:       cyls,
		FirstSectorID:   first,
	}
}

// imageClasses is ordered: when several classes share a size, the first one
// provides the default geometry and later entries stay visible to callers
// that want the full ambiguity set.
var imageClasses = []ImageClass{
	{"Amiga DD", "Commodore Amiga", 901120, geo(512, 11, 2, 80, 0), capRW, SystemNone},
	{"Amiga HD", "Commodore Amiga", 1802240, geo(512, 22, 2, 80, 0), capRW, SystemNone},
	{"PC 1.44M", "IBM PC", 1474560, geo(512, 18, 2, 80, 1), capRW, SystemNone},
	{"PC 720K", "IBM PC", 737280, geo(512, 9, 2, 80, 1), capRW, SystemNone},
	{"Atari ST 720K", "Atari ST", 737280, geo(512, 9, 2, 80, 1), capRW, SystemNone},
	{"PC 360K", "IBM PC", 368640, geo(512, 9, 2, 40, 1), capRW, SystemNone},
	{"Atari ST 360K", "Atari ST", 368640, geo(512, 9, 1, 80, 1), capRW, SystemNone},
	{"PC 1.2M", "IBM PC", 1228800, geo(512, 15, 2, 80, 1), capRW, SystemNone},
	{"PC 2.88M", "IBM PC", 2949120, geo(512, 36, 2, 80, 1), capRW, SystemNone},
	{"Atari ST 400K", "Atari ST", 409600, geo(512, 10, 1, 80, 1), capRW, SystemNone},
	{"Atari ST 800K", "Atari ST", 819200, geo(512, 10, 2, 80, 1), capRW, SystemNone},
	{"CBM 1581", "Commodore 1581", 819200, geo(512, 10, 2, 80, 1), capRW, SystemNone},
	{"CBM 1541", "Commodore 64", 174848, geo(256, 21, 1, 35, 0), capRW, SystemNone},
	{"CBM 1541 40-track", "Commodore 64", 196608, geo(256, 21, 1, 40, 0), capRW, SystemNone},
	{"CBM 1571", "Commodore 128", 349696, geo(256, 21, 2, 35, 0), capRW, SystemC128},
	{"Apple II 140K", "Apple II", 143360, geo(256, 16, 1, 35, 0), capRW, SystemNone},
	{"Apple II NIB", "Apple II", 232960, geo(256, 16, 1, 35, 0), CapRead | CapPhysical, SystemNone},
	{"Kaypro II", "Kaypro II", 204800, geo(512, 10, 1, 40, 0), capRW, SystemKaypro},
	{"Osborne 1 DD", "Osborne 1", 204800, geo(1024, 5, 1, 40, 1), capRW, SystemOsborne},
	{"Osborne 1 SD", "Osborne 1", 102400, geo(256, 10, 1, 40, 1), capRW, SystemOsborne},
	{"Amstrad 180K", "Amstrad CPC", 184320, geo(512, 9, 1, 40, 1), capRW, SystemAmstrad},
	{"Spectrum +3 180K", "ZX Spectrum +3", 184320, geo(512, 9, 1, 40, 1), capRW, SystemSpectrumPlus3},
	{"IBM 8\" SD", "IBM 3740", 256256, geo(128, 26, 1, 77, 1), capRW, SystemIBM8SD},
	{"BBC DFS 100K", "BBC Micro", 102400, geo(256, 10, 1, 40, 0), capRW, SystemNone},
	{"BBC DFS 200K", "BBC Micro", 204800, geo(256, 10, 1, 80, 0), capRW, SystemNone},
}

// ClassifySize returns every known class matching the image size, first
// entry first. An empty slice means the size is not in the table.
func ClassifySize(size uint64) []ImageClass {
	var out []ImageClass
	for _, c := range imageClasses {
		if c.Size == size {
			out = append(out, c)
		}
	}
	return out
}

// ResolveGeometry resolves an image size to a geometry: table lookup first,
// then the generic PC fallback (divisibility by 512x18, then 512x9, two
// heads, a plausible cylinder count).
func ResolveGeometry(size uint64) (Geometry, bool) {
	if classes := ClassifySize(size); len(classes) > 0 {
		return classes[0].Geom, true
	}
	for _, spt := range []uint64{18, 9} {
		track := 512 * spt
		if size%(track*2) != 0 {
			continue
		}
		cyls := size / (track * 2)
		if cyls >= 35 && cyls <= 85 {
			return geo(512, uint32(spt), 2, uint32(cyls), 1), true
		}
	}
	return Geometry{}, false
}

// FingerprintCpm maps a geometry onto the CP/M system family it matches.
func FingerprintCpm(g Geometry) CpmSystem {
	type fp struct {
		secSize, spt, heads, cyls uint32
		sys                       CpmSystem
	}
	fingerprints := []fp{
		{512, 10, 1, 40, SystemKaypro},
		{1024, 5, 1, 40, SystemOsborne},
		{256, 10, 1, 40, SystemOsborne},
		{512, 9, 1, 40, SystemAmstrad},
		{128, 26, 1, 77, SystemIBM8SD},
		{256, 21, 2, 35, SystemC128},
	}
	for _, f := range fingerprints {
		if g.SectorSize == f.secSize && g.SectorsPerTrack == f.spt &&
			g.Heads == f.heads && g.Cylinders == f.cyls {
			return f.sys
		}
	}
	return SystemNone
}
