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
package binio_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uftool/uft/pkg/binio"
)

func TestEndianPairs(t *testing.T) {
	buf := make([]byte, 4)

	binio.PutU16BE(buf, 0x1234)
	require.Equal(t, []byte{0x12, 0x34, 0, 0}, buf)
	require.Equal(t, uint16(0x1234), binio.U16BE(buf))

	binio.PutU16LE(buf, 0x1234)
	require.Equal(t, []byte{0x34, 0x12, 0, 0}, buf)
	require.Equal(t, uint16(0x1234), binio.U16LE(buf))

	binio.PutU32BE(buf, 0xDEADBEEF)
	require.Equal(t, uint32(0xDEADBEEF), binio.U32BE(buf))
	binio.PutU32LE(buf, 0xDEADBEEF)
	require.Equal(t, uint32(0xDEADBEEF), binio.U32LE(buf))
	require.Equal(t, []byte{0xEF, 0xBE, 0xAD, 0xDE}, buf)
}

func TestCursorWalk(t *testing.T) {
	c := binio.NewCursor([]byte{0x01, 0x12, 0x34, 0xAA, 0xBB, 0xCC, 0xDD, 0xFF})
	require.Equal(t, uint8(1), c.U8())
	require.Equal(t, uint16(0x1234), c.U16BE())
	require.Equal(t, []byte{0xAA, 0xBB}, c.Bytes(2))
	require.Equal(t, 3, c.Remaining())
	c.Skip(2)
	require.Equal(t, uint8(0xFF), c.U8())
	require.NoError(t, c.Err())
	require.Equal(t, 0, c.Remaining())
}

func TestCursorStickyError(t *testing.T) {
	c := binio.NewCursor([]byte{0x01})
	require.Equal(t, uint16(0), c.U16BE())
	require.ErrorIs(t, c.Err(), io.ErrUnexpectedEOF)

	// After the first short read every call returns zero values.
	require.Equal(t, uint8(0), c.U8())
	require.Nil(t, c.Bytes(1))
}
