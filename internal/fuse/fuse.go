//go:build linux

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

// Package fuse exports a mounted CP/M volume as a read-only FUSE
// filesystem. Files are served through the CP/M engine's ReadFile.
package fuse

import (
	"context"
	"os"
	"strings"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/uftool/uft/internal/cpm"
)

// CpmFS adapts an open CP/M disk to the FUSE node tree.
type CpmFS struct {
	disk *cpm.Disk
}

func NewCpmFS(disk *cpm.Disk) *CpmFS {
	return &CpmFS{disk: disk}
}

func (c *CpmFS) Root() (fs.Node, error) {
	return &dir{fs: c}, nil
}

type dir struct {
	fs *CpmFS
}

func (*dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0o555
	return nil
}

func (d *dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	fi, err := d.fs.disk.FindFile(strings.ToUpper(name), cpm.WildcardUser)
	if err != nil {
		return nil, fuse.ENOENT
	}
	return &file{fs: d.fs, info: fi}, nil
}

func (d *dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	files := d.fs.disk.ReadDirectory()
	out := make([]fuse.Dirent, len(files))
	for i, f := range files {
		out[i] = fuse.Dirent{
			Inode: uint64(i + 2),
			Name:  f.Name,
			Type:  fuse.DT_File,
		}
	}
	return out, nil
}

type file struct {
	fs   *CpmFS
	info cpm.FileInfo
}

func (f *file) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0o444
	a.Size = f.info.Size
	return nil
}

func (f *file) ReadAll(ctx context.Context) ([]byte, error) {
	data, err := f.fs.disk.ReadFile(f.info.Name, f.info.User)
	if err != nil {
		return nil, fuse.EIO
	}
	return data, nil
}
