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

// Package binio provides explicit big- and little-endian field access over
// byte slices. Wire formats in this module never rely on host byte order.
package binio

import "encoding/binary"

func U16BE(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func U32BE(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func U16LE(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func U32LE(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

func PutU16BE(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }
func PutU32BE(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
func PutU16LE(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func PutU32LE(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
