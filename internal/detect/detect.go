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

// Package detect identifies the physical geometry and logical filesystem of
// raw floppy images in three stages: size-table geometry resolution, boot
// sector analysis, and a CP/M directory heuristic. Detection never fails on
// arbitrary input; an unrecognised image yields a result with no
// candidates.
package detect

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/uftool/uft/internal/checksum"
	"github.com/uftool/uft/internal/disk"
)

// MaxCandidates caps the ranked list. A full list only displaces its
// weakest member for a strictly stronger newcomer.
const MaxCandidates = 8

// Options tune a detection run.
type Options struct {
	// Geometry, when set, is authoritative and skips stage-1 resolution.
	Geometry *disk.Geometry

	// Reader enables the stage-3 CP/M directory scan.
	Reader disk.SectorReader

	// Continue is polled between expensive probes; returning false unwinds
	// the run with whatever has been found so far.
	Continue func() bool

	Logger *slog.Logger
}

// Result is the outcome of a detection run. Candidates are sorted by
// confidence, strictly descending, ties kept in insertion order; the top
// candidate is mirrored into the Best fields.
type Result struct {
	Geometry      disk.Geometry
	GeometryKnown bool

	Bpb   *FatBpb
	Amiga *AmigaBootInfo

	Candidates []Candidate

	BestKind        Kind
	BestConfidence  int
	BestDescription string

	order []int // insertion sequence, parallel to Candidates
	next  int
}

func (r *Result) add(c Candidate) {
	if c.Confidence <= 0 {
		return
	}
	if c.Confidence > 100 {
		c.Confidence = 100
	}
	if c.Description == "" {
		c.Description = c.Kind.String()
	}

	// Same kind appearing twice keeps the stronger score.
	for i := range r.Candidates {
		if r.Candidates[i].Kind == c.Kind {
			if c.Confidence > r.Candidates[i].Confidence {
				r.Candidates[i] = c
				r.order[i] = r.next
				r.next++
			}
			return
		}
	}

	if len(r.Candidates) < MaxCandidates {
		r.Candidates = append(r.Candidates, c)
		r.order = append(r.order, r.next)
		r.next++
		return
	}

	weakest := 0
	for i := 1; i < len(r.Candidates); i++ {
		if r.Candidates[i].Confidence <= r.Candidates[weakest].Confidence {
			weakest = i
		}
	}
	if c.Confidence > r.Candidates[weakest].Confidence {
		r.Candidates[weakest] = c
		r.order[weakest] = r.next
		r.next++
	}
}

func (r *Result) remove(kind Kind) {
	for i := range r.Candidates {
		if r.Candidates[i].Kind == kind {
			r.Candidates = append(r.Candidates[:i], r.Candidates[i+1:]...)
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func (r *Result) finalize() {
	sort.SliceStable(r.Candidates, func(i, j int) bool {
		if r.Candidates[i].Confidence != r.Candidates[j].Confidence {
			return r.Candidates[i].Confidence > r.Candidates[j].Confidence
		}
		return r.order[i] < r.order[j]
	})
	if len(r.Candidates) > 0 {
		best := r.Candidates[0]
		r.BestKind = best.Kind
		r.BestConfidence = best.Confidence
		r.BestDescription = best.Description
	}
}

// Detect runs the identification stages over a raw image.
func Detect(image []byte, opts Options) (*Result, error) {
	if image == nil {
		return nil, StatusNullParam
	}
	if len(image) < 128 {
		return nil, StatusNoData
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	keepGoing := opts.Continue
	if keepGoing == nil {
		keepGoing = func() bool { return true }
	}

	res := &Result{}

	// Containers are recognised regardless of geometry.
	probeContainers(image, res)

	// Stage 1: geometry.
	if opts.Geometry != nil {
		res.Geometry = *opts.Geometry
		res.GeometryKnown = true
	} else if g, ok := disk.ResolveGeometry(uint64(len(image))); ok {
		res.Geometry = g
		res.GeometryKnown = true
	}
	if !res.GeometryKnown {
		log.Debug("no geometry heuristic applies", "size", len(image))
		res.finalize()
		return res, nil
	}
	g := res.Geometry

	// Stage 2: boot sector.
	if amigaStage(image, res) {
		res.finalize()
		return res, nil
	}

	if isPfsBoot(image) {
		res.add(Candidate{
			Kind:       KindPFS,
			Confidence: 95,
			Machine:    "Commodore Amiga",
			Traits:     TraitHasBoot,
		})
	}

	fatStage(image, g, res)

	if res.Bpb == nil || !res.Bpb.Valid {
		cbm1581Stage(image, g, res)
		cpmProvisional(g, res)
	}

	// Stage 3: CP/M directory heuristic, only with a sector callback.
	if opts.Reader != nil && keepGoing() {
		if err := cpmScanStage(g, opts.Reader, keepGoing, log, res); err != nil {
			// A failing read curtails stage 3 but keeps stage-2 findings.
			log.Warn("directory scan stopped", "err", err)
		}
	}

	res.finalize()
	return res, nil
}

// amigaStage handles the exclusive Amiga branch: a "DOS" signature ends
// detection, boosted to 98 when the bootblock checksum holds.
func amigaStage(image []byte, res *Result) bool {
	info := parseAmigaBoot(image)
	if info == nil {
		return false
	}
	res.Amiga = info

	conf := 90
	if info.ChecksumValid {
		conf = 98
	}
	res.add(Candidate{
		Kind:       info.Kind(),
		Confidence: conf,
		Machine:    "Commodore Amiga",
		Traits:     TraitHasBoot,
		Detail:     info,
	})
	if isPfsBoot(image) {
		res.add(Candidate{
			Kind:       KindPFS,
			Confidence: 95,
			Machine:    "Commodore Amiga",
			Traits:     TraitHasBoot,
		})
	}
	return true
}

var msdosOemHints = []string{"MSDOS", "MSWIN", "IBM", "DRDOS", "FREEDOS"}

func fatStage(image []byte, g disk.Geometry, res *Result) {
	sector := image
	if len(sector) > 512 {
		sector = sector[:512]
	}
	bpb, err := ParseFatBpb(sector, uint64(len(image)))
	if err != nil {
		return
	}
	res.Bpb = bpb
	if !bpb.Valid {
		return
	}

	atariStProbe(image, bpb, res)
	msxProbe(sector, bpb, res)

	conf := 70
	if bpb.Jump[0] == 0xEB || bpb.Jump[0] == 0xE9 {
		conf += 10
	}
	if bpb.BootSig55AA {
		conf += 10
	}
	oem := strings.ToUpper(bpb.Oem)
	for _, hint := range msdosOemHints {
		if strings.Contains(oem, hint) {
			conf += 5
			break
		}
	}
	if strings.Contains(bpb.FsType, "FAT12") {
		conf += 5
	}
	res.add(Candidate{
		Kind:       bpb.FatKind(),
		Confidence: conf,
		Machine:    "IBM PC",
		Traits:     TraitHasBoot | TraitHasFatBpb,
		Detail:     bpb,
	})
}

func atariStProbe(image []byte, bpb *FatBpb, res *Result) {
	c := Candidate{
		Kind:    KindFAT12AtariST,
		Machine: "Atari ST",
		Traits:  TraitHasBoot | TraitHasFatBpb,
		Detail:  bpb,
	}

	if len(image) >= 512 && checksum.AtariWordSum(image[:512]) == checksum.AtariBootSum {
		c.Confidence = 95
		if image[0] == 0x60 { // 68k BRA.S
			c.Confidence += 5
		}
		res.add(c)
		return
	}

	oem := strings.ToUpper(bpb.Oem)
	x86Jump := bpb.Jump[0] == 0xEB || bpb.Jump[0] == 0xE9
	if strings.Contains(oem, "ATARI") || strings.Contains(oem, "TOS") ||
		strings.Contains(oem, "GEM") || (oem == "" && !x86Jump) {
		c.Confidence = 80
		res.add(c)
	}
}

func msxProbe(sector []byte, bpb *FatBpb, res *Result) {
	oem := strings.ToUpper(bpb.Oem)
	hit := strings.Contains(oem, "MSX") || strings.Contains(oem, "NEXTOR") || sector[0] == 0xC3
	if !hit {
		// Z80 JP / RET opcodes in the post-BPB code area.
		for i := fatBpbWireSize; i < len(sector) && i < 0x80; i++ {
			if sector[i] == 0xC3 || sector[i] == 0xC9 {
				hit = true
				break
			}
		}
	}
	if hit {
		res.add(Candidate{
			Kind:       KindFAT12MSX,
			Confidence: 75,
			Machine:    "MSX",
			Traits:     TraitHasBoot | TraitHasFatBpb,
			Detail:     bpb,
		})
	}
}

// cbm1581Stage adds a 1581 hint on its exact geometry when no FAT BPB
// claimed the disk. The header sector at track 40 raises the score.
func cbm1581Stage(image []byte, g disk.Geometry, res *Result) {
	if g.SectorSize != 512 || g.SectorsPerTrack != 10 || g.Heads != 2 || g.Cylinders != 80 {
		return
	}
	conf := 40
	// Logical track 40, sector 0: directory link 40/3 and DOS version 'D'.
	const headerOffset = 39 * 40 * 256
	if len(image) > headerOffset+3 &&
		image[headerOffset] == 0x28 && image[headerOffset+2] == 0x44 {
		conf += 20
	}
	if conf > 60 {
		conf = 60
	}
	res.add(Candidate{
		Kind:       KindCBM1581,
		Confidence: conf,
		Machine:    "Commodore 1581",
		Traits:     TraitHasBoot,
	})
}

// cpmProvisional seeds a weak generic CP/M candidate from the geometry
// fingerprint; stage 3 refines or replaces it.
func cpmProvisional(g disk.Geometry, res *Result) {
	conf := 20
	if disk.FingerprintCpm(g) != disk.SystemNone {
		conf = 35
	}
	res.add(Candidate{
		Kind:       KindCpmGeneric,
		Confidence: conf,
		Machine:    "CP/M",
		Traits:     TraitHasCpmDir,
	})
}
