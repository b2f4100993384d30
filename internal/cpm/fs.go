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
	"sort"

	"github.com/boljen/go-bitmap"
	"github.com/pkg/errors"

	"github.com/uftool/uft/internal/disk"
)

// FileInfo is the aggregate view of one file: all directory entries sharing
// its (user, name, ext) identity, merged.
type FileInfo struct {
	User     uint8
	Name     string
	Size     uint64
	Attr     Attr
	Modified Timestamp

	// extents indexes the chain's directory slots, lowest extent first.
	extents []int
}

// Blocks counts the allocation blocks referenced by the file.
func (fi FileInfo) Blocks(d *Disk) int {
	n := 0
	for _, idx := range fi.extents {
		n += len(d.entries[idx].BlockPointers(d.dpb.Wide16()))
	}
	return n
}

// Disk is an open CP/M volume. It owns the in-memory directory and the
// allocation bitmap; the underlying storage stays with the sector
// callbacks.
type Disk struct {
	geo disk.Geometry
	dpb Dpb
	r   disk.SectorReader
	w   disk.SectorWriter

	secPerBlock uint32
	dirSectors  int

	dirBuf  []byte
	entries []DirEntry
	bam     bitmap.Bitmap
	free    int
	dirty   map[int]struct{}
	files   []FileInfo
}

// Open mounts a CP/M volume through sector callbacks. A nil writer gives a
// read-only mount: every mutating operation fails with Unsupported.
func Open(g disk.Geometry, dpb Dpb, r disk.SectorReader, w disk.SectorWriter) (*Disk, error) {
	if r == nil {
		return nil, errors.Wrap(StatusNullParam, "sector reader")
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(StatusNullParam, err.Error())
	}
	if err := dpb.Validate(); err != nil {
		return nil, err
	}
	bs := dpb.BlockSize()
	if bs < g.SectorSize {
		return nil, errors.Wrapf(StatusUnsupported, "block size %d below sector size %d", bs, g.SectorSize)
	}

	d := &Disk{
		geo:         g,
		dpb:         dpb,
		r:           r,
		w:           w,
		secPerBlock: bs / g.SectorSize,
		dirty:       map[int]struct{}{},
	}
	d.dirSectors = dpb.DirBlocks() * int(d.secPerBlock)

	if err := d.loadDirectory(); err != nil {
		return nil, err
	}
	d.rebuild()
	return d, nil
}

func (d *Disk) Geometry() disk.Geometry { return d.geo }
func (d *Disk) Dpb() Dpb                { return d.dpb }

// dataStartSector is the linear sector index where the data area (and the
// directory, its first blocks) begins.
func (d *Disk) dataStartSector() uint64 {
	return uint64(d.dpb.Off) * uint64(d.geo.SectorsPerTrack)
}

func (d *Disk) chs(linear uint64) (cyl, head, sec uint32) {
	g := d.geo
	track := linear / uint64(g.SectorsPerTrack)
	return uint32(track / uint64(g.Heads)),
		uint32(track % uint64(g.Heads)),
		uint32(linear%uint64(g.SectorsPerTrack)) + g.FirstSectorID
}

func (d *Disk) readSectors(linear uint64, count int, dst []byte) error {
	ss := int(d.geo.SectorSize)
	for i := 0; i < count; i++ {
		c, h, s := d.chs(linear + uint64(i))
		if err := d.r.ReadSector(c, h, s, dst[i*ss:(i+1)*ss]); err != nil {
			return errors.Wrapf(StatusReadError, "sector %d/%d/%d: %v", c, h, s, err)
		}
	}
	return nil
}

func (d *Disk) writeSectors(linear uint64, count int, src []byte) error {
	if d.w == nil {
		return errors.Wrap(StatusUnsupported, "read-only mount")
	}
	ss := int(d.geo.SectorSize)
	for i := 0; i < count; i++ {
		c, h, s := d.chs(linear + uint64(i))
		if err := d.w.WriteSector(c, h, s, src[i*ss:(i+1)*ss]); err != nil {
			return errors.Wrapf(StatusWriteError, "sector %d/%d/%d: %v", c, h, s, err)
		}
	}
	return nil
}

func (d *Disk) blockSector(block uint16) uint64 {
	return d.dataStartSector() + uint64(block)*uint64(d.secPerBlock)
}

func (d *Disk) readBlock(block uint16, dst []byte) error {
	return d.readSectors(d.blockSector(block), int(d.secPerBlock), dst)
}

func (d *Disk) writeBlock(block uint16, src []byte) error {
	return d.writeSectors(d.blockSector(block), int(d.secPerBlock), src)
}

func (d *Disk) loadDirectory() error {
	d.dirBuf = make([]byte, d.dirSectors*int(d.geo.SectorSize))
	if err := d.readSectors(d.dataStartSector(), d.dirSectors, d.dirBuf); err != nil {
		return err
	}
	n := d.dpb.DirEntries()
	if n*EntrySize > len(d.dirBuf) {
		return errors.Wrap(StatusBadDir, "directory entries exceed AL0/AL1 blocks")
	}
	d.entries = make([]DirEntry, n)
	for i := 0; i < n; i++ {
		d.entries[i] = decodeEntry(d.dirBuf[i*EntrySize:])
	}
	return nil
}

// blankName filters slots that are neither deleted nor real files, as seen
// on never-formatted media.
func blankName(e DirEntry) bool {
	for _, b := range e.Name {
		if b&0x7F != 0 && b&0x7F != ' ' {
			return false
		}
	}
	return true
}

// rebuild derives the allocation bitmap and the file list from the parsed
// directory.
func (d *Disk) rebuild() {
	nblocks := int(d.dpb.Dsm) + 1
	d.bam = bitmap.New(nblocks)
	for b := 0; b < d.dpb.DirBlocks(); b++ {
		d.bam.Set(b, true)
	}

	byKey := map[fileKey]int{}
	d.files = d.files[:0]

	for idx, e := range d.entries {
		if e.User > MaxUser || blankName(e) {
			continue
		}
		for _, p := range e.BlockPointers(d.dpb.Wide16()) {
			if int(p) < nblocks {
				d.bam.Set(int(p), true)
			}
		}
		k := e.key()
		fi, ok := byKey[k]
		if !ok {
			d.files = append(d.files, FileInfo{
				User: e.User,
				Name: FormatName(e.Name, e.Ext),
				Attr: e.Attributes(),
			})
			fi = len(d.files) - 1
			byKey[k] = fi
		}
		d.files[fi].extents = append(d.files[fi].extents, idx)
	}

	for i := range d.files {
		f := &d.files[i]
		sort.Slice(f.extents, func(a, b int) bool {
			return d.entries[f.extents[a]].ExtentNumber() < d.entries[f.extents[b]].ExtentNumber()
		})
		last := d.entries[f.extents[len(f.extents)-1]]
		rc := int(last.Rc)
		if rc > recordsPerExtent {
			rc = recordsPerExtent
		}
		f.Size = RecordSize * uint64(last.ExtentNumber()*recordsPerExtent+rc)
		f.Attr = last.Attributes()
	}

	d.free = 0
	for b := 0; b < nblocks; b++ {
		if !d.bam.Get(b) {
			d.free++
		}
	}
}

// ReadDirectory returns the current file list.
func (d *Disk) ReadDirectory() []FileInfo {
	out := make([]FileInfo, len(d.files))
	copy(out, d.files)
	return out
}

// FileCount is the number of live files on the volume.
func (d *Disk) FileCount() int { return len(d.files) }

// FreeSpace reports unallocated blocks and the equivalent byte count.
func (d *Disk) FreeSpace() (blocks int, bytes uint64) {
	return d.free, uint64(d.free) * uint64(d.dpb.BlockSize())
}

// FindFile locates a file by canonical name. WildcardUser (0xFF) matches
// the first file with the name in any user area.
func (d *Disk) FindFile(name string, user uint8) (FileInfo, error) {
	base, ext, err := ParseName(name)
	if err != nil {
		return FileInfo{}, err
	}
	want := FormatName(base, ext)
	for _, f := range d.files {
		if f.Name == want && (user == WildcardUser || f.User == user) {
			return f, nil
		}
	}
	return FileInfo{}, errors.Wrapf(StatusNotFound, "%q user %d", name, user)
}

// ReadFile returns a file's contents, truncated to its directory size.
func (d *Disk) ReadFile(name string, user uint8) ([]byte, error) {
	f, err := d.FindFile(name, user)
	if err != nil {
		return nil, err
	}

	bs := int(d.dpb.BlockSize())
	buf := make([]byte, 0, f.Size)
	block := make([]byte, bs)
	for _, idx := range f.extents {
		for _, p := range d.entries[idx].BlockPointers(d.dpb.Wide16()) {
			if err := d.readBlock(p, block); err != nil {
				return nil, err
			}
			buf = append(buf, block...)
		}
	}
	if uint64(len(buf)) > f.Size {
		buf = buf[:f.Size]
	}
	return buf, nil
}

func (d *Disk) allocBlocks(n int) ([]uint16, error) {
	if n > d.free {
		return nil, errors.Wrapf(StatusDiskFull, "need %d blocks, %d free", n, d.free)
	}
	out := make([]uint16, 0, n)
	for b := 0; b <= int(d.dpb.Dsm) && len(out) < n; b++ {
		if !d.bam.Get(b) {
			d.bam.Set(b, true)
			d.free--
			out = append(out, uint16(b))
		}
	}
	if len(out) < n {
		d.freeBlockList(out)
		return nil, errors.Wrap(StatusDiskFull, "bitmap exhausted")
	}
	return out, nil
}

func (d *Disk) freeBlockList(blocks []uint16) {
	for _, b := range blocks {
		if d.bam.Get(int(b)) {
			d.bam.Set(int(b), false)
			d.free++
		}
	}
}

func (d *Disk) storeEntry(idx int, e DirEntry) {
	d.entries[idx] = e
	e.encode(d.dirBuf[idx*EntrySize:])
	ss := int(d.geo.SectorSize)
	d.dirty[idx*EntrySize/ss] = struct{}{}
}

func (d *Disk) freeSlots() []int {
	var out []int
	for i, e := range d.entries {
		if e.User == DeletedUser {
			out = append(out, i)
		}
	}
	return out
}

// WriteFile stores data under the canonical name in the given user area,
// replacing any existing file. Data blocks reach the disk before the
// directory is updated, so an interrupted write can leak blocks but never
// reference unwritten ones.
func (d *Disk) WriteFile(name string, user uint8, data []byte) error {
	if d.w == nil {
		return errors.Wrap(StatusUnsupported, "read-only mount")
	}
	base, ext, err := ParseName(name)
	if err != nil {
		return err
	}
	if user > MaxUser {
		return errors.Wrapf(StatusInvalidName, "user %d", user)
	}

	if _, err := d.FindFile(name, user); err == nil {
		if err := d.DeleteFile(name, user); err != nil {
			return err
		}
	}

	bs := int(d.dpb.BlockSize())
	nblocks := (len(data) + bs - 1) / bs
	ptrsPer := d.dpb.PointersPerEntry()
	nentries := (nblocks + ptrsPer - 1) / ptrsPer
	if nentries == 0 {
		nentries = 1
	}

	slots := d.freeSlots()
	if len(slots) < nentries {
		return errors.Wrapf(StatusDiskFull, "need %d directory slots, %d free", nentries, len(slots))
	}

	blocks, err := d.allocBlocks(nblocks)
	if err != nil {
		return err
	}

	chunk := make([]byte, bs)
	for i, b := range blocks {
		n := copy(chunk, data[i*bs:])
		for j := n; j < bs; j++ {
			chunk[j] = 0
		}
		if err := d.writeBlock(b, chunk); err != nil {
			d.freeBlockList(blocks)
			return err
		}
	}

	records := (len(data) + RecordSize - 1) / RecordSize
	recordsPerBlock := bs / RecordSize

	for i := 0; i < nentries; i++ {
		e := DirEntry{User: user, Name: base, Ext: ext}

		lo := i * ptrsPer
		hi := lo + ptrsPer
		if hi > len(blocks) {
			hi = len(blocks)
		}
		e.setBlockPointers(blocks[lo:hi], d.dpb.Wide16())

		recordsBefore := lo * recordsPerBlock
		entryRecords := records - recordsBefore
		if limit := ptrsPer * recordsPerBlock; entryRecords > limit {
			entryRecords = limit
		}
		if entryRecords <= 0 {
			e.setExtentNumber(0)
			e.Rc = 0
		} else {
			lastRecord := recordsBefore + entryRecords // exclusive
			lastExtent := (lastRecord - 1) / recordsPerExtent
			e.setExtentNumber(lastExtent)
			e.Rc = uint8(lastRecord - lastExtent*recordsPerExtent)
		}

		d.storeEntry(slots[i], e)
	}

	d.rebuild()
	return d.Sync()
}

// DeleteFile marks every extent of the file deleted and frees its blocks.
func (d *Disk) DeleteFile(name string, user uint8) error {
	if d.w == nil {
		return errors.Wrap(StatusUnsupported, "read-only mount")
	}
	f, err := d.FindFile(name, user)
	if err != nil {
		return err
	}
	for _, idx := range f.extents {
		e := d.entries[idx]
		d.freeBlockList(e.BlockPointers(d.dpb.Wide16()))
		e.User = DeletedUser
		d.storeEntry(idx, e)
	}
	d.rebuild()
	return d.Sync()
}

// RenameFile changes a file's canonical name in place, across all extents.
func (d *Disk) RenameFile(oldName, newName string, user uint8) error {
	if d.w == nil {
		return errors.Wrap(StatusUnsupported, "read-only mount")
	}
	base, ext, err := ParseName(newName)
	if err != nil {
		return err
	}
	f, err := d.FindFile(oldName, user)
	if err != nil {
		return err
	}
	if _, err := d.FindFile(newName, f.User); err == nil {
		return errors.Wrapf(StatusExists, "%q user %d", newName, f.User)
	}

	attr := f.Attr
	for _, idx := range f.extents {
		e := d.entries[idx]
		e.Name = base
		e.Ext = ext
		e.setAttributes(attr)
		d.storeEntry(idx, e)
	}
	d.rebuild()
	return d.Sync()
}

// SetAttributes applies the attribute set to every extent of the file.
func (d *Disk) SetAttributes(name string, user uint8, attr Attr) error {
	if d.w == nil {
		return errors.Wrap(StatusUnsupported, "read-only mount")
	}
	f, err := d.FindFile(name, user)
	if err != nil {
		return err
	}
	for _, idx := range f.extents {
		e := d.entries[idx]
		e.setAttributes(attr)
		d.storeEntry(idx, e)
	}
	d.rebuild()
	return d.Sync()
}

// Format erases the directory: every slot becomes a deleted marker. Data
// blocks are left in place.
func (d *Disk) Format() error {
	if d.w == nil {
		return errors.Wrap(StatusUnsupported, "read-only mount")
	}
	for i := range d.dirBuf {
		d.dirBuf[i] = DeletedUser
	}
	for i := range d.entries {
		d.entries[i] = decodeEntry(d.dirBuf[i*EntrySize:])
	}
	for s := 0; s < d.dirSectors; s++ {
		d.dirty[s] = struct{}{}
	}
	d.rebuild()
	return d.Sync()
}

// Sync flushes dirty directory sectors through the write callback.
func (d *Disk) Sync() error {
	if len(d.dirty) == 0 {
		return nil
	}
	if d.w == nil {
		return errors.Wrap(StatusUnsupported, "read-only mount")
	}
	ss := int(d.geo.SectorSize)
	start := d.dataStartSector()
	for s := range d.dirty {
		if err := d.writeSectors(start+uint64(s), 1, d.dirBuf[s*ss:(s+1)*ss]); err != nil {
			return err
		}
	}
	d.dirty = map[int]struct{}{}
	return nil
}
