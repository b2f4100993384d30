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

import (
	"fmt"

	"github.com/uftool/uft/internal/checksum"
	"github.com/uftool/uft/pkg/binio"
)

// Amiga bootblock disk-type flag bits (byte 3 of "DOS\x").
const (
	amigaFlagFFS      = 1 << 0
	amigaFlagIntl     = 1 << 1
	amigaFlagDirCache = 1 << 2
)

// amigaBootblockSize is the two-sector bootblock the checksum covers.
const amigaBootblockSize = 1024

// AmigaBootInfo is the parsed AmigaDOS bootblock.
type AmigaBootInfo struct {
	DiskType      [4]byte
	FFS           bool
	International bool
	DirCache      bool
	Checksum      uint32
	ChecksumValid bool
	RootBlock     uint32
	Bootable      bool
}

// Render implements Detail.
func (a *AmigaBootInfo) Render() string {
	state := "checksum invalid"
	if a.ChecksumValid {
		state = "checksum valid"
	}
	return fmt.Sprintf("bootblock type %q, rootblock %d, bootable %v, %s",
		a.DiskType[:], a.RootBlock, a.Bootable, state)
}

// Kind maps the disk-type flags onto the filesystem family.
func (a *AmigaBootInfo) Kind() Kind {
	switch {
	case a.DirCache && a.FFS:
		return KindAmigaFFSDirCache
	case a.DirCache:
		return KindAmigaOFSDirCache
	case a.International && a.FFS:
		return KindAmigaFFSIntl
	case a.International:
		return KindAmigaOFSIntl
	case a.FFS:
		return KindAmigaFFS
	}
	return KindAmigaOFS
}

// parseAmigaBoot decodes an AmigaDOS bootblock, or returns nil when the
// image does not start with "DOS".
func parseAmigaBoot(image []byte) *AmigaBootInfo {
	if len(image) < 12 || image[0] != 'D' || image[1] != 'O' || image[2] != 'S' {
		return nil
	}
	flags := image[3]
	info := &AmigaBootInfo{
		FFS:           flags&amigaFlagFFS != 0,
		International: flags&amigaFlagIntl != 0,
		DirCache:      flags&amigaFlagDirCache != 0,
		Checksum:      binio.U32BE(image[4:]),
		RootBlock:     binio.U32BE(image[8:]),
	}
	copy(info.DiskType[:], image[:4])

	end := amigaBootblockSize
	if end > len(image) {
		end = len(image)
	}
	for _, b := range image[12:end] {
		if b != 0 {
			info.Bootable = true
			break
		}
	}
	if end == amigaBootblockSize {
		info.ChecksumValid = checksum.AmigaBootValid(image[:amigaBootblockSize])
	}
	return info
}

// isPfsBoot recognises the Professional File System signature.
func isPfsBoot(image []byte) bool {
	return len(image) >= 4 && image[0] == 'P' && image[1] == 'F' && image[2] == 'S' && image[3] == 0x01
}
