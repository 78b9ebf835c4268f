// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/luci/luci-go/common/errors"
)

// EntryKind is the closed enumeration of filesystem object kinds a TOC
// entry may describe.
type EntryKind byte

const (
	KindFile     EntryKind = 0
	KindDir      EntryKind = 1
	KindSymlink  EntryKind = 2
	KindHardlink EntryKind = 3
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	case KindHardlink:
		return "hardlink"
	}
	return "unknown"
}

// BlockDesc describes one block belonging to a block-mode file entry.
type BlockDesc struct {
	Index            uint64
	UncompressedSize uint32
	CompressedSize   uint32
	Method           CompressionMethod
}

// Entry is a single TOC record describing one filesystem object.
type Entry struct {
	Path  string
	Mode  uint32
	Mtime int64
	Size  uint64
	Kind  EntryKind

	// Meta is the decoded metadata blob, or nil if none was captured.
	Meta *MetaJSON

	// Blocks is populated in block mode; StartOff is used in solid mode.
	// Which one is meaningful depends on the archive's SOLID flag.
	Blocks   []BlockDesc
	StartOff uint64
}

// TOC is the ordered sequence of Entry records making up an archive's
// table of contents.
type TOC struct {
	Entries []Entry
}

// Pack encodes t to its on-disk bytes, writing the block-mode or
// solid-mode per-entry tail depending on solid.
func (t *TOC) Pack(solid bool) ([]byte, error) {
	buf := &bytes.Buffer{}
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(t.Entries)))
	buf.Write(countBuf[:])

	for i := range t.Entries {
		if err := t.Entries[i].pack(buf, solid); err != nil {
			return nil, errors.Annotate(err).Reason("packing entry %(path)q").
				D("path", t.Entries[i].Path).Err()
		}
	}
	return buf.Bytes(), nil
}

func (e *Entry) pack(buf *bytes.Buffer, solid bool) error {
	path := []byte(e.Path)
	if len(path) > 0xFFFF {
		return errors.Reason("path too long: %(path)q").D("path", e.Path).Err()
	}

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], uint16(len(path)))
	buf.Write(u16[:])
	buf.Write(path)

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], e.Mode)
	buf.Write(u32[:])

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(e.Mtime))
	buf.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], e.Size)
	buf.Write(u64[:])
	binary.LittleEndian.PutUint32(u32[:], uint32(len(e.Blocks)))
	buf.Write(u32[:])

	buf.WriteByte(byte(e.Kind))

	metaBytes, err := MarshalMeta(e.Meta)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(u32[:], uint32(len(metaBytes)))
	buf.Write(u32[:])
	buf.Write(metaBytes)

	if solid {
		binary.LittleEndian.PutUint64(u64[:], e.StartOff)
		buf.Write(u64[:])
		return nil
	}
	for _, b := range e.Blocks {
		binary.LittleEndian.PutUint64(u64[:], b.Index)
		buf.Write(u64[:])
		binary.LittleEndian.PutUint32(u32[:], b.UncompressedSize)
		buf.Write(u32[:])
		binary.LittleEndian.PutUint32(u32[:], b.CompressedSize)
		buf.Write(u32[:])
		buf.WriteByte(byte(b.Method))
	}
	return nil
}

// ParseTOC decodes a packed TOC, interpreting the block-mode or
// solid-mode per-entry tail depending on solid.
//
// The kind byte and metadata-length field were added to the on-disk
// format after the original path/mode/mtime/size/block-count prefix,
// so a TOC produced before they existed has every one of its entries
// missing them, not just some. Whether this TOC predates them is
// therefore decided once, for the whole entry set, not per entry: the
// current layout is tried first, and only if parsing all n entries
// that way fails to land exactly on the end of data does parsing
// restart from scratch assuming every entry uses the pre-metadata
// layout. Checking per entry against how many bytes are left in the
// shared reader doesn't work, since that count reflects every
// remaining entry, not just the one being decoded, and can accept a
// kind byte and metadata length that simply happen to fit within
// someone else's bytes.
func ParseTOC(data []byte, solid bool) (*TOC, error) {
	if len(data) < 4 {
		return nil, errors.Reason("TOC shorter than the entry count field").Err()
	}
	n := binary.LittleEndian.Uint32(data[:4])
	body := data[4:]

	t, err := parseTOCEntries(body, n, solid, false)
	if err == nil {
		return t, nil
	}
	currentErr := err

	if t, err := parseTOCEntries(body, n, solid, true); err == nil {
		return t, nil
	}
	return nil, currentErr
}

// parseTOCEntries parses exactly n entries from body under one layout
// (legacy or current), succeeding only if doing so consumes body to
// its last byte.
func parseTOCEntries(body []byte, n uint32, solid, legacy bool) (*TOC, error) {
	r := bytes.NewReader(body)
	t := &TOC{Entries: make([]Entry, 0, n)}
	for i := uint32(0); i < n; i++ {
		e, err := parseEntry(r, solid, legacy)
		if err != nil {
			return nil, errors.Annotate(err).Reason("parsing entry %(i)d").D("i", i).Err()
		}
		t.Entries = append(t.Entries, *e)
	}
	if r.Len() != 0 {
		return nil, errors.Reason("%(n)d bytes left over after parsing entries").D("n", r.Len()).Err()
	}
	return t, nil
}

func parseEntry(r *bytes.Reader, solid, legacy bool) (*Entry, error) {
	e := &Entry{}

	var u16 [2]byte
	if _, err := io.ReadFull(r, u16[:]); err != nil {
		return nil, errors.Annotate(err).Reason("reading path length").Err()
	}
	pathLen := binary.LittleEndian.Uint16(u16[:])
	pathBuf := make([]byte, pathLen)
	if _, err := io.ReadFull(r, pathBuf); err != nil {
		return nil, errors.Annotate(err).Reason("reading path").Err()
	}
	e.Path = string(pathBuf)

	var u32 [4]byte
	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return nil, errors.Annotate(err).Reason("reading mode").Err()
	}
	e.Mode = binary.LittleEndian.Uint32(u32[:])

	var u64 [8]byte
	if _, err := io.ReadFull(r, u64[:]); err != nil {
		return nil, errors.Annotate(err).Reason("reading mtime").Err()
	}
	e.Mtime = int64(binary.LittleEndian.Uint64(u64[:]))

	if _, err := io.ReadFull(r, u64[:]); err != nil {
		return nil, errors.Annotate(err).Reason("reading size").Err()
	}
	e.Size = binary.LittleEndian.Uint64(u64[:])

	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return nil, errors.Annotate(err).Reason("reading block count").Err()
	}
	nb := binary.LittleEndian.Uint32(u32[:])

	if legacy {
		e.Kind = KindFile
		e.Meta = nil
	} else {
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading kind").Err()
		}
		if _, err := io.ReadFull(r, u32[:]); err != nil {
			return nil, errors.Annotate(err).Reason("reading metadata length").Err()
		}
		mlen := binary.LittleEndian.Uint32(u32[:])
		if int64(mlen) > int64(r.Len()) {
			return nil, errors.Reason("metadata length %(mlen)d exceeds remaining bytes").D("mlen", mlen).Err()
		}
		metaBytes := make([]byte, mlen)
		if _, err := io.ReadFull(r, metaBytes); err != nil {
			return nil, errors.Annotate(err).Reason("reading metadata").Err()
		}
		meta, err := UnmarshalMeta(metaBytes)
		if err != nil {
			return nil, errors.Annotate(err).Reason("unmarshaling metadata").Err()
		}
		e.Kind = EntryKind(kindByte)
		e.Meta = meta
	}

	if solid {
		if _, err := io.ReadFull(r, u64[:]); err != nil {
			return nil, errors.Annotate(err).Reason("reading solid start offset").Err()
		}
		e.StartOff = binary.LittleEndian.Uint64(u64[:])
		return e, nil
	}

	if nb == 0 {
		return e, nil
	}
	e.Blocks = make([]BlockDesc, 0, nb)
	for i := uint32(0); i < nb; i++ {
		var b BlockDesc
		if _, err := io.ReadFull(r, u64[:]); err != nil {
			return nil, errors.Annotate(err).Reason("reading block %(i)d index").D("i", i).Err()
		}
		b.Index = binary.LittleEndian.Uint64(u64[:])
		if _, err := io.ReadFull(r, u32[:]); err != nil {
			return nil, errors.Annotate(err).Reason("reading block %(i)d usize").D("i", i).Err()
		}
		b.UncompressedSize = binary.LittleEndian.Uint32(u32[:])
		if _, err := io.ReadFull(r, u32[:]); err != nil {
			return nil, errors.Annotate(err).Reason("reading block %(i)d csize").D("i", i).Err()
		}
		b.CompressedSize = binary.LittleEndian.Uint32(u32[:])
		methodByte, err := r.ReadByte()
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading block %(i)d method").D("i", i).Err()
		}
		b.Method = CompressionMethod(methodByte)
		e.Blocks = append(e.Blocks, b)
	}
	return e, nil
}
