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

// Status is the closed outcome set of the IPF decoder.
type Status int

const (
	StatusOK Status = iota
	StatusNotIpf
	StatusBadCrc
	StatusTruncated
	StatusBadRecord
	StatusKeyMismatch
	StatusFileError
	StatusNoMem
	StatusNotSupported
	StatusUnsupportedVersion
	StatusBadMagic
)

var statusText = map[Status]string{
	StatusOK:                 "ok",
	StatusNotIpf:             "not an IPF file",
	StatusBadCrc:             "record CRC mismatch",
	StatusTruncated:          "file truncated",
	StatusBadRecord:          "malformed record",
	StatusKeyMismatch:        "data key has no image record",
	StatusFileError:          "file error",
	StatusNoMem:              "out of memory",
	StatusNotSupported:       "not supported",
	StatusUnsupportedVersion: "unsupported version",
	StatusBadMagic:           "bad magic",
}

func (s Status) String() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return "unknown status"
}

func (s Status) Error() string { return s.String() }

// Warnings accumulate non-fatal parse findings.
type Warnings uint32

const (
	WarnCrcMismatch Warnings = 1 << iota
	WarnTruncated
	WarnUnknownRecords
	WarnMissingInfo
	WarnMissingImge
)

func (w Warnings) Has(f Warnings) bool { return w&f == f }
