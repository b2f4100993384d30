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

// Status is the closed outcome set of the detection engine.
type Status int

const (
	StatusOK Status = iota
	StatusNullParam
	StatusNoData
	StatusInvalidSector
	StatusReadFailed
	StatusNotMfm
	StatusUnknownFormat
	StatusAllocFailed
	StatusInvalidBpb
	StatusCorruptDir
)

var statusText = map[Status]string{
	StatusOK:            "ok",
	StatusNullParam:     "missing parameter",
	StatusNoData:        "image too small",
	StatusInvalidSector: "invalid sector",
	StatusReadFailed:    "sector read failed",
	StatusNotMfm:        "not MFM encoded",
	StatusUnknownFormat: "unknown format",
	StatusAllocFailed:   "allocation failed",
	StatusInvalidBpb:    "invalid BIOS parameter block",
	StatusCorruptDir:    "corrupt directory",
}

func (s Status) String() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return "unknown status"
}

func (s Status) Error() string { return s.String() }
