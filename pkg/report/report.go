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

// Package report streams an XML session report: one header describing the
// source image, then one element per finding (detection candidate or
// captured track).
package report

import (
	"encoding/xml"
	"io"
)

// Header describes the session and its source image.
type Header struct {
	XMLName   xml.Name `xml:"source"`
	Tool      string   `xml:"tool"`
	Version   string   `xml:"version"`
	Session   string   `xml:"session"`
	Image     string   `xml:"image_filename,omitempty"`
	ImageSize uint64   `xml:"image_size,omitempty"`
	Geometry  string   `xml:"geometry,omitempty"`
}

// Item is one report entry.
type Item struct {
	XMLName    xml.Name `xml:"item"`
	Name       string   `xml:"name"`
	Kind       string   `xml:"kind,omitempty"`
	Confidence int      `xml:"confidence,omitempty"`
	Size       uint64   `xml:"size,omitempty"`
	Detail     string   `xml:"detail,omitempty"`
}

// Writer emits the report incrementally so long captures stream.
type Writer struct {
	enc    *xml.Encoder
	closed bool
}

var root = xml.StartElement{Name: xml.Name{Local: "uft_report"}}

func NewWriter(w io.Writer) (*Writer, error) {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return nil, err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}
	return &Writer{enc: enc}, nil
}

func (w *Writer) WriteHeader(h Header) error {
	return w.enc.Encode(h)
}

func (w *Writer) WriteItem(item Item) error {
	return w.enc.Encode(item)
}

// Close ends the document. Safe to call twice.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return w.enc.Flush()
}
