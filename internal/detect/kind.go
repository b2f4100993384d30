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

// Kind identifies a filesystem or container family a candidate belongs to.
type Kind int

const (
	KindUnknown Kind = iota

	KindAmigaOFS
	KindAmigaFFS
	KindAmigaOFSIntl
	KindAmigaFFSIntl
	KindAmigaOFSDirCache
	KindAmigaFFSDirCache
	KindPFS

	KindFAT12
	KindFAT16
	KindFAT12AtariST
	KindFAT12MSX

	KindCBM1581

	KindCpmGeneric
	KindCpmKaypro
	KindCpmOsborne
	KindCpmAmstrad
	KindCpmIBM8SD
	KindCpmC128
	KindCpmSpectrumPlus3

	KindIpfContainer
	KindDfiContainer
	KindScpContainer
	KindDskContainer
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindAmigaOFS:         "Amiga OFS",
	KindAmigaFFS:         "Amiga FFS",
	KindAmigaOFSIntl:     "Amiga OFS International",
	KindAmigaFFSIntl:     "Amiga FFS International",
	KindAmigaOFSDirCache: "Amiga OFS DirCache",
	KindAmigaFFSDirCache: "Amiga FFS DirCache",
	KindPFS:              "Amiga PFS",
	KindFAT12:            "FAT12 MS-DOS",
	KindFAT16:            "FAT16 MS-DOS",
	KindFAT12AtariST:     "FAT12 Atari ST",
	KindFAT12MSX:         "FAT12 MSX-DOS",
	KindCBM1581:          "Commodore 1581",
	KindCpmGeneric:       "CP/M",
	KindCpmKaypro:        "CP/M Kaypro",
	KindCpmOsborne:       "CP/M Osborne",
	KindCpmAmstrad:       "CP/M Amstrad",
	KindCpmIBM8SD:        "CP/M IBM 8\" SD",
	KindCpmC128:          "CP/M Commodore 128",
	KindCpmSpectrumPlus3: "CP/M Spectrum +3",
	KindIpfContainer:     "IPF container",
	KindDfiContainer:     "DFI container",
	KindScpContainer:     "SCP container",
	KindDskContainer:     "Amstrad DSK container",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// IsCpm reports whether the kind is a CP/M family member.
func (k Kind) IsCpm() bool {
	return k >= KindCpmGeneric && k <= KindCpmSpectrumPlus3
}

// Traits are the capabilities a candidate's family carries. They replace
// per-kind switches in callers: rendering and follow-up actions key off
// the trait set.
type Traits uint8

const (
	TraitHasBoot Traits = 1 << iota
	TraitHasFatBpb
	TraitHasCpmDir
	TraitContainer
)

func (t Traits) Has(f Traits) bool { return t&f == f }

// Detail carries kind-specific findings a candidate wants to expose.
type Detail interface {
	Render() string
}

// Candidate is one ranked identification.
type Candidate struct {
	Kind        Kind
	Confidence  int // 0..100
	Description string
	Machine     string
	Traits      Traits
	Detail      Detail
}

// Describe renders the candidate's one-line summary.
func (c Candidate) Describe() string {
	if c.Description != "" {
		return c.Description
	}
	return c.Kind.String()
}
