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
package binio

import "io"

// Cursor walks a byte slice sequentially. The first short read sticks as the
// cursor error; subsequent reads return zero values, so a decode loop can
// check Err once at the end.
type Cursor struct {
	b   []byte
	off int
	err error
}

func NewCursor(b []byte) *Cursor {
	return &Cursor{b: b}
}

func (c *Cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if c.off+n > len(c.b) {
		c.err = io.ErrUnexpectedEOF
		return false
	}
	return true
}

func (c *Cursor) U8() uint8 {
	if !c.need(1) {
		return 0
	}
	v := c.b[c.off]
	c.off++
	return v
}

func (c *Cursor) U16BE() uint16 {
	if !c.need(2) {
		return 0
	}
	v := U16BE(c.b[c.off:])
	c.off += 2
	return v
}

func (c *Cursor) U32BE() uint32 {
	if !c.need(4) {
		return 0
	}
	v := U32BE(c.b[c.off:])
	c.off += 4
	return v
}

func (c *Cursor) U16LE() uint16 {
	if !c.need(2) {
		return 0
	}
	v := U16LE(c.b[c.off:])
	c.off += 2
	return v
}

func (c *Cursor) U32LE() uint32 {
	if !c.need(4) {
		return 0
	}
	v := U32LE(c.b[c.off:])
	c.off += 4
	return v
}

// Bytes returns the next n bytes without copying.
func (c *Cursor) Bytes(n int) []byte {
	if n < 0 || !c.need(n) {
		if c.err == nil {
			c.err = io.ErrUnexpectedEOF
		}
		return nil
	}
	v := c.b[c.off : c.off+n]
	c.off += n
	return v
}

func (c *Cursor) Skip(n int) {
	if c.need(n) {
		c.off += n
	}
}

func (c *Cursor) Offset() int    { return c.off }
func (c *Cursor) Remaining() int { return len(c.b) - c.off }
func (c *Cursor) Err() error     { return c.err }
