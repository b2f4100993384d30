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
package detect

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/uftool/uft/internal/cpm"
	"github.com/uftool/uft/internal/disk"
)

// dirScanWindow is how much of the disk past the boot tracks the directory
// heuristic inspects: 128 potential entries. Keeping the window tight makes
// the offset holding the directory outscore its neighbours.
const dirScanWindow = 4 * 1024

// Extension families that identify a CP/M directory with high confidence.
var cpmExtFamilies = []string{"COM", "SUB", "TXT", "BAS", "ASM", "PRL", "REL", "DOC", "HEX", "LIB"}

// CpmDetail is the stage-3 finding attached to a refined CP/M candidate.
type CpmDetail struct {
	System     disk.CpmSystem
	BootTracks int
	Dpb        cpm.Dpb
	LiveFiles  int
}

// Render implements Detail.
func (d *CpmDetail) Render() string {
	return fmt.Sprintf("%s directory at track %d, %d live entries, %d-byte blocks, %d slots",
		d.System, d.BootTracks, d.LiveFiles, d.Dpb.BlockSize(), d.Dpb.DirEntries())
}

type dirScore struct {
	valid   int
	deleted int
	empty   int
	bad     int
	total   int
	live    int
	exts    map[string]bool
}

func (s *dirScore) entries() int { return s.valid + s.deleted + s.empty + s.bad }

func printable(b byte) bool { return b >= 0x20 && b < 0x7F }

func printableName(e []byte) bool {
	seen := false
	for _, b := range e[1:9] {
		c := b & 0x7F
		if !printable(c) {
			return false
		}
		if c != ' ' {
			seen = true
		}
	}
	return seen
}

func alnumName(e []byte) bool {
	for _, b := range e[1:9] {
		c := b & 0x7F
		ok := c == ' ' || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '_'
		if !ok {
			return false
		}
	}
	return true
}

func validExt(e []byte) bool {
	for _, b := range e[9:12] {
		c := b & 0x7F
		if !printable(c) {
			return false
		}
	}
	return true
}

func allBytes(e []byte, v byte) bool {
	for _, b := range e {
		if b != v {
			return false
		}
	}
	return true
}

// scoreEntry applies the per-slot heuristic and folds the outcome into s.
func scoreEntry(e []byte, s *dirScore) {
	user := e[0]

	switch {
	case allBytes(e, 0):
		s.empty++
		s.total += 2
		return
	case allBytes(e, cpm.DeletedUser):
		s.empty++
		s.total += 2
		return
	case user == cpm.DeletedUser:
		if printableName(e) {
			s.deleted++
			s.total += 3
		} else {
			s.bad++
			s.total -= 5
		}
		return
	case user > cpm.MaxUser:
		s.bad++
		s.total -= 8
		return
	}

	if allBytes(e[16:32], 0xFF) {
		s.bad++
		s.total -= 8
		return
	}
	if !printableName(e) {
		s.bad++
		s.total -= 5
		return
	}

	score := 0
	if alnumName(e) {
		score += 3
	}
	if validExt(e) {
		score += 2
	}
	if e[12] <= 31 { // EX
		score++
	}
	if e[13] == 0 { // S1
		score++
	}
	if e[15] <= 128 { // RC
		score++
	}

	s.valid++
	s.live++
	s.total += score

	if s.exts == nil {
		s.exts = map[string]bool{}
	}
	ext := string([]byte{e[9] & 0x7F, e[10] & 0x7F, e[11] & 0x7F})
	for _, fam := range cpmExtFamilies {
		if ext == fam {
			s.exts[fam] = true
		}
	}
}

// confidence maps the aggregate score onto the banded confidence scale.
func (s *dirScore) confidence() int {
	denom := s.valid + s.deleted + s.bad
	if denom == 0 || s.entries() == 0 {
		return 0
	}
	validRatio := float64(s.valid+s.deleted) / float64(denom)
	avg := float64(s.total) / float64(s.entries())

	conf := 0
	switch {
	case validRatio > 0.9 && avg > 3.0:
		conf = 90
	case validRatio > 0.8 && avg > 2.0:
		conf = 75
	case validRatio > 0.6 && avg > 1.0:
		conf = 55
	case validRatio > 0.4:
		conf = 35
	case validRatio > 0.2:
		conf = 20
	}
	if conf == 0 {
		return 0
	}
	conf += 3 * len(s.exts)
	if conf > 100 {
		conf = 100
	}
	return conf
}

// cpmScanStage sweeps boot-track offsets 0..3, scores each candidate
// directory, and refines the provisional CP/M candidate with the winner.
func cpmScanStage(g disk.Geometry, r disk.SectorReader, keepGoing func() bool, log *slog.Logger, res *Result) error {
	sectors := dirScanWindow / int(g.SectorSize)
	if sectors < 1 {
		sectors = 1
	}
	buf := make([]byte, sectors*int(g.SectorSize))
	sec := make([]byte, g.SectorSize)

	bestConf := 0
	bestOff := -1
	var bestScore dirScore

	totalTracks := int(g.Cylinders) * int(g.Heads)

	for off := 0; off <= 3 && off < totalTracks; off++ {
		if !keepGoing() {
			break
		}
		n, err := readLinear(g, r, off, sectors, buf, sec)
		if n == 0 && err != nil {
			return err
		}

		var s dirScore
		for i := 0; i+cpm.EntrySize <= n*int(g.SectorSize); i += cpm.EntrySize {
			scoreEntry(buf[i:i+cpm.EntrySize], &s)
		}
		conf := s.confidence()
		log.Debug("directory probe", "bootTracks", off, "confidence", conf,
			"valid", s.valid, "deleted", s.deleted, "bad", s.bad)

		if conf > bestConf {
			bestConf = conf
			bestOff = off
			bestScore = s
		}
		if err != nil {
			return err
		}
	}

	if bestOff < 0 || bestConf == 0 {
		return nil
	}

	system := disk.FingerprintCpm(g)
	kind := cpmKindFor(system)

	blockSize := 1024
	if g.DiskSize() > 512*1024 {
		blockSize = 2048
	}
	detail := &CpmDetail{System: system, BootTracks: bestOff, LiveFiles: bestScore.live}
	dpb, err := cpm.ComputeDpb(g, bestOff, blockSize, 64)
	if err != nil {
		return errors.Wrap(StatusCorruptDir, err.Error())
	}
	detail.Dpb = dpb

	if kind != KindCpmGeneric {
		res.remove(KindCpmGeneric)
	}
	res.add(Candidate{
		Kind:       kind,
		Confidence: bestConf,
		Machine:    system.String(),
		Traits:     TraitHasCpmDir,
		Detail:     detail,
	})
	return nil
}

// readLinear reads up to count sectors starting at the first sector of
// track bootTracks, returning how many sectors landed in buf.
func readLinear(g disk.Geometry, r disk.SectorReader, bootTracks, count int, buf, sec []byte) (int, error) {
	spt := int(g.SectorsPerTrack)
	start := bootTracks * spt
	ss := int(g.SectorSize)

	for i := 0; i < count; i++ {
		linear := start + i
		track := linear / spt
		cyl := uint32(track / int(g.Heads))
		head := uint32(track % int(g.Heads))
		if cyl >= g.Cylinders {
			return i, nil
		}
		s := uint32(linear%spt) + g.FirstSectorID
		if err := r.ReadSector(cyl, head, s, sec); err != nil {
			return i, errors.Wrapf(StatusReadFailed, "sector %d/%d/%d: %v", cyl, head, s, err)
		}
		copy(buf[i*ss:], sec)
	}
	return count, nil
}

func cpmKindFor(system disk.CpmSystem) Kind {
	switch system {
	case disk.SystemKaypro:
		return KindCpmKaypro
	case disk.SystemOsborne:
		return KindCpmOsborne
	case disk.SystemAmstrad:
		return KindCpmAmstrad
	case disk.SystemIBM8SD:
		return KindCpmIBM8SD
	case disk.SystemC128:
		return KindCpmC128
	case disk.SystemSpectrumPlus3:
		return KindCpmSpectrumPlus3
	}
	return KindCpmGeneric
}
