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
package cpm

import (
	"strings"

	"github.com/pkg/errors"
)

// Characters CP/M rejects in file names.
const invalidNameChars = "<>.,;:=?*[]%|()/\\"

// ParseName canonicalises NAME.EXT into the upper-case, space-padded 8+3
// form stored on disk. The base name must be non-empty; the extension may
// be absent.
func ParseName(name string) (base [8]byte, ext [3]byte, err error) {
	for i := range base {
		base[i] = ' '
	}
	for i := range ext {
		ext[i] = ' '
	}

	basePart := name
	extPart := ""
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		basePart = name[:dot]
		extPart = name[dot+1:]
	}

	if basePart == "" || len(basePart) > 8 || len(extPart) > 3 || strings.Contains(extPart, ".") {
		return base, ext, errors.Wrapf(StatusInvalidName, "%q", name)
	}

	put := func(dst []byte, src string) error {
		for i := 0; i < len(src); i++ {
			c := src[i]
			if c < 0x21 || c > 0x7E || strings.IndexByte(invalidNameChars, c) >= 0 {
				return errors.Wrapf(StatusInvalidName, "%q", name)
			}
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			dst[i] = c
		}
		return nil
	}
	if err := put(base[:], basePart); err != nil {
		return base, ext, err
	}
	if err := put(ext[:], extPart); err != nil {
		return base, ext, err
	}
	return base, ext, nil
}

// FormatName renders stored 8+3 bytes as NAME.EXT, attribute bits stripped
// and padding trimmed.
func FormatName(base [8]byte, ext [3]byte) string {
	clean := func(b []byte) string {
		out := make([]byte, len(b))
		for i, c := range b {
			out[i] = c & 0x7F
		}
		return strings.TrimRight(string(out), " ")
	}
	b := clean(base[:])
	e := clean(ext[:])
	if e == "" {
		return b
	}
	return b + "." + e
}
