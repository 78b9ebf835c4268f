// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"encoding/binary"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTOC(t *testing.T) {
	t.Parallel()

	Convey("TOC", t, func() {
		Convey("block mode round trip", func() {
			toc := &TOC{Entries: []Entry{
				{
					Path: "dir/file.txt", Mode: 0644, Mtime: 1000, Size: 24, Kind: KindFile,
					Meta: &MetaJSON{Posix: &PosixMeta{UID: 1, GID: 1, Mode: 0644}},
					Blocks: []BlockDesc{
						{Index: 0, UncompressedSize: 12, CompressedSize: 8, Method: MethodZstd},
						{Index: 1, UncompressedSize: 12, CompressedSize: 9, Method: MethodZstd},
					},
				},
				{Path: "dir", Mode: 0755 | 1<<31, Mtime: 999, Kind: KindDir},
				{Path: "dir/link", Mode: 0777, Kind: KindSymlink, Meta: &MetaJSON{LinkTarget: "file.txt"}},
			}}

			b, err := toc.Pack(false)
			So(err, ShouldBeNil)

			got, err := ParseTOC(b, false)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, toc)
		})

		Convey("solid mode round trip", func() {
			toc := &TOC{Entries: []Entry{
				{Path: "a.txt", Mode: 0644, Size: 10, Kind: KindFile, StartOff: 0},
				{Path: "b.txt", Mode: 0644, Size: 20, Kind: KindFile, StartOff: 10},
			}}

			b, err := toc.Pack(true)
			So(err, ShouldBeNil)

			got, err := ParseTOC(b, true)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, toc)
		})

		Convey("empty TOC", func() {
			toc := &TOC{}
			b, err := toc.Pack(false)
			So(err, ShouldBeNil)
			So(len(b), ShouldEqual, 4)

			got, err := ParseTOC(b, false)
			So(err, ShouldBeNil)
			So(len(got.Entries), ShouldEqual, 0)
		})

		Convey("historical entries lacking kind/metadata parse as plain files", func() {
			// Hand-build one entry using the pre-kind/metadata layout:
			// path, mode, mtime, size, block count, then the block tuples
			// directly (no kind byte, no metadata length).
			buf := []byte{}
			appendU32 := func(v uint32) { buf = binary.LittleEndian.AppendUint32(buf, v) }
			appendU16 := func(v uint16) { buf = binary.LittleEndian.AppendUint16(buf, v) }
			appendU64 := func(v uint64) { buf = binary.LittleEndian.AppendUint64(buf, v) }

			appendU32(1) // entry count

			path := []byte("legacy.bin")
			appendU16(uint16(len(path)))
			buf = append(buf, path...)
			appendU32(0644)        // mode
			appendU64(0)           // mtime
			appendU64(12)          // size
			appendU32(1)           // block count
			appendU64(0)           // block 0 index
			appendU32(12)          // block 0 usize
			appendU32(10)          // block 0 csize
			buf = append(buf, 0x4) // block 0 method (zstd)

			got, err := ParseTOC(buf, false)
			So(err, ShouldBeNil)
			So(len(got.Entries), ShouldEqual, 1)
			e := got.Entries[0]
			So(e.Path, ShouldEqual, "legacy.bin")
			So(e.Kind, ShouldEqual, KindFile)
			So(e.Meta, ShouldBeNil)
			So(len(e.Blocks), ShouldEqual, 1)
			So(e.Blocks[0].Method, ShouldEqual, MethodZstd)
		})

		Convey("historical multi-entry TOC with an earlier entry lacking kind/metadata", func() {
			// Two entries, both pre-kind/metadata layout. The first
			// entry isn't last, so a reader that judges "legacy" off
			// how many bytes are left in the whole TOC (rather than
			// deciding the layout once for every entry) would see more
			// bytes remaining than this entry's own tail and wrongly
			// try to read a kind byte and metadata length out of the
			// second entry's path-length prefix.
			buf := []byte{}
			appendU32 := func(v uint32) { buf = binary.LittleEndian.AppendUint32(buf, v) }
			appendU16 := func(v uint16) { buf = binary.LittleEndian.AppendUint16(buf, v) }
			appendU64 := func(v uint64) { buf = binary.LittleEndian.AppendUint64(buf, v) }
			appendEntry := func(path string, size uint64) {
				p := []byte(path)
				appendU16(uint16(len(p)))
				buf = append(buf, p...)
				appendU32(0644)             // mode
				appendU64(0)                // mtime
				appendU64(size)             // size
				appendU32(1)                // block count
				appendU64(0)                // block 0 index
				appendU32(uint32(size))     // block 0 usize
				appendU32(uint32(size) - 2) // block 0 csize
				buf = append(buf, 0x4)      // block 0 method (zstd)
			}

			appendU32(2) // entry count
			appendEntry("a.bin", 12)
			appendEntry("b.bin", 20)

			got, err := ParseTOC(buf, false)
			So(err, ShouldBeNil)
			So(len(got.Entries), ShouldEqual, 2)
			So(got.Entries[0].Path, ShouldEqual, "a.bin")
			So(got.Entries[0].Kind, ShouldEqual, KindFile)
			So(got.Entries[0].Meta, ShouldBeNil)
			So(got.Entries[1].Path, ShouldEqual, "b.bin")
			So(got.Entries[1].Kind, ShouldEqual, KindFile)
			So(got.Entries[1].Meta, ShouldBeNil)
		})

		Convey("path too long rejected", func() {
			toc := &TOC{Entries: []Entry{{Path: string(make([]byte, 1<<16))}}}
			_, err := toc.Pack(false)
			So(err, ShouldNotBeNil)
		})
	})
}
