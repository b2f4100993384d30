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
package report_test

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uftool/uft/pkg/report"
)

func TestReportWellFormed(t *testing.T) {
	var buf bytes.Buffer
	w, err := report.NewWriter(&buf)
	require.NoError(t, err)

	require.NoError(t, w.WriteHeader(report.Header{
		Tool:      "uft",
		Session:   "uft_20250101_120000",
		Image:     "disk.img",
		ImageSize: 901120,
		Geometry:  "80x2x11x512 (first sector 0)",
	}))
	require.NoError(t, w.WriteItem(report.Item{Name: "Amiga FFS", Kind: "Amiga FFS", Confidence: 98}))
	require.NoError(t, w.WriteItem(report.Item{Name: "track 00.0", Size: 12345}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close()) // idempotent

	out := buf.String()
	require.True(t, strings.HasPrefix(out, xml.Header))
	require.Contains(t, out, "<uft_report>")
	require.Contains(t, out, "<image_filename>disk.img</image_filename>")
	require.Contains(t, out, "<confidence>98</confidence>")

	// The stream must be well-formed XML end to end.
	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if err != nil {
			require.Contains(t, err.Error(), "EOF")
			break
		}
	}
}
