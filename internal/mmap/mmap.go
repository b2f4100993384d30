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

// Package mmap opens disk images read-only, memory-mapped where the
// platform allows it and heap-backed otherwise. Floppy images are small
// enough that the fallback is never a problem.
package mmap

import (
	"os"

	"github.com/pkg/errors"
)

// Image is an opened, read-only disk image.
type Image struct {
	Data []byte

	file   *os.File
	mapped bool
}

// Open maps or reads the image at path.
func Open(path string) (*Image, error) {
	return open(path)
}

// Close releases the mapping (or the buffer) and the file, on every path.
func (im *Image) Close() error {
	return im.close()
}

func readFallback(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if len(data) == 0 {
		return nil, errors.Errorf("%s is empty", path)
	}
	return &Image{Data: data}, nil
}
