// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfa

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/luci/luci-go/common/errors"
	"github.com/luci/luci-go/common/logging"

	"github.com/tg11-org/vfa/vfadata"
	"github.com/tg11-org/vfa/walker"
)

// Extract materializes every entry of a into outDir, following the
// dirs -> solid-decode -> symlinks -> files -> hardlinks ordering
// required for forward references (symlink targets, hardlink sources)
// to already exist by the time they're needed.
func (a *OpenedArchive) Extract(ctx context.Context, outDir string, opts walker.CaptureOptions) error {
	var dirs, symlinks, files, hardlinks []vfadata.Entry
	for _, e := range a.TOC.Entries {
		switch e.Kind {
		case vfadata.KindDir:
			dirs = append(dirs, e)
		case vfadata.KindSymlink:
			symlinks = append(symlinks, e)
		case vfadata.KindHardlink:
			hardlinks = append(hardlinks, e)
		default:
			files = append(files, e)
		}
	}

	for _, e := range dirs {
		if err := a.extractDir(ctx, outDir, e, opts); err != nil {
			return errors.Annotate(err).Reason("creating directory %(path)q").D("path", e.Path).Err()
		}
	}

	var solid []byte
	if a.Header.Solid() {
		var err error
		solid, err = a.decodeSolidStream()
		if err != nil {
			return errors.Annotate(err).Reason("decoding solid stream").Err()
		}
	} else if _, err := a.r.Seek(int64(vfadata.HeaderSize), io.SeekStart); err != nil {
		return errors.Annotate(err).Reason("seeking to block stream").Err()
	}

	for _, e := range symlinks {
		if err := a.extractSymlink(ctx, outDir, e, opts); err != nil {
			return errors.Annotate(err).Reason("creating symlink %(path)q").D("path", e.Path).Err()
		}
	}

	for _, e := range files {
		var err error
		if a.Header.Solid() {
			err = a.extractSolidFile(ctx, outDir, e, solid, opts)
		} else {
			err = a.extractBlockFile(ctx, outDir, e, opts)
		}
		if err != nil {
			return errors.Annotate(err).Reason("extracting file %(path)q").D("path", e.Path).Err()
		}
	}

	for _, e := range hardlinks {
		a.extractHardlink(ctx, outDir, e)
	}

	return nil
}

func outPath(outDir, archivePath string) string {
	return filepath.Join(outDir, filepath.FromSlash(archivePath))
}

func (a *OpenedArchive) extractDir(ctx context.Context, outDir string, e vfadata.Entry, opts walker.CaptureOptions) error {
	p := outPath(outDir, e.Path)
	if err := os.MkdirAll(p, 0755); err != nil {
		return err
	}
	walker.Apply(ctx, p, e.Meta, os.FileMode(e.Mode), time.Unix(e.Mtime, 0), e.Kind, opts)
	return nil
}

func (a *OpenedArchive) extractSymlink(ctx context.Context, outDir string, e vfadata.Entry, opts walker.CaptureOptions) error {
	if e.Meta == nil || e.Meta.LinkTarget == "" {
		return errors.Reason("symlink entry has no link_target").Err()
	}
	p := outPath(outDir, e.Path)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	_ = os.Remove(p)
	if err := os.Symlink(e.Meta.LinkTarget, p); err != nil {
		return err
	}
	walker.Apply(ctx, p, e.Meta, os.FileMode(e.Mode), time.Unix(e.Mtime, 0), e.Kind, opts)
	return nil
}

// decodeSolidStream sequentially reads every block frame from the
// start of the block stream until the file cursor reaches the TOC
// offset, decrypting (if needed) under each frame's real
// emission-order block index and decompressing with its method tag.
func (a *OpenedArchive) decodeSolidStream() ([]byte, error) {
	if _, err := a.r.Seek(int64(vfadata.HeaderSize), io.SeekStart); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	var index uint64
	for {
		pos, err := a.r.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		if uint64(pos) >= a.Footer.TOCOffset {
			break
		}
		method, payload, err := vfadata.ReadFrame(a.r)
		if err != nil {
			return nil, err
		}
		if a.Header.Encrypted() {
			payload, err = vfadata.Open(a.key, a.Header, index, payload, []byte("vfa-data"))
			if err != nil {
				return nil, errors.Annotate(err).Reason("decrypting solid block %(index)d").D("index", index).Err()
			}
		}
		plain, err := method.Decompress(payload)
		if err != nil {
			return nil, errors.Annotate(err).Reason("decompressing solid block %(index)d").D("index", index).Err()
		}
		buf.Write(plain)
		index++
	}
	return buf.Bytes(), nil
}

func (a *OpenedArchive) extractSolidFile(ctx context.Context, outDir string, e vfadata.Entry, solid []byte, opts walker.CaptureOptions) error {
	if e.StartOff+e.Size > uint64(len(solid)) {
		return errors.Reason("entry extends past decoded solid stream").Err()
	}
	return a.writeFileBytes(ctx, outDir, e, solid[e.StartOff:e.StartOff+e.Size], opts)
}

func (a *OpenedArchive) extractBlockFile(ctx context.Context, outDir string, e vfadata.Entry, opts walker.CaptureOptions) error {
	p := outPath(outDir, e.Path)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, desc := range e.Blocks {
		method, payload, err := vfadata.ReadFrame(a.r)
		if err != nil {
			return err
		}
		if uint32(len(payload)) != desc.CompressedSize {
			return errors.Reason("block %(index)d: frame length %(got)d != csz %(want)d").
				D("index", desc.Index).D("got", len(payload)).D("want", desc.CompressedSize).Err()
		}
		if method != desc.Method {
			return errors.Reason("block %(index)d: frame method %(got)d != descriptor method %(want)d").
				D("index", desc.Index).D("got", byte(method)).D("want", byte(desc.Method)).Err()
		}
		if a.Header.Encrypted() {
			payload, err = vfadata.Open(a.key, a.Header, desc.Index, payload, []byte("vfa-data"))
			if err != nil {
				return errors.Annotate(err).Reason("decrypting block %(index)d").D("index", desc.Index).Err()
			}
		}
		plain, err := method.Decompress(payload)
		if err != nil {
			return errors.Annotate(err).Reason("decompressing block %(index)d").D("index", desc.Index).Err()
		}
		if uint32(len(plain)) != desc.UncompressedSize {
			return errors.Reason("block %(index)d: decompressed length %(got)d != usz %(want)d").
				D("index", desc.Index).D("got", len(plain)).D("want", desc.UncompressedSize).Err()
		}
		if _, err := f.Write(plain); err != nil {
			return err
		}
	}

	if err := f.Close(); err != nil {
		return err
	}
	a.applyFileMeta(ctx, p, e, opts)
	return nil
}

func (a *OpenedArchive) writeFileBytes(ctx context.Context, outDir string, e vfadata.Entry, data []byte, opts walker.CaptureOptions) error {
	p := outPath(outDir, e.Path)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return err
	}
	a.applyFileMeta(ctx, p, e, opts)
	return nil
}

func (a *OpenedArchive) applyFileMeta(ctx context.Context, p string, e vfadata.Entry, opts walker.CaptureOptions) {
	walker.Apply(ctx, p, e.Meta, os.FileMode(e.Mode), time.Unix(e.Mtime, 0), e.Kind, opts)
}

// extractHardlink resolves hardlink_to relative to outDir and links to
// it. Hard-link creation is best-effort: a missing target, a
// cross-device link attempt, or any other os.Link failure is logged
// and swallowed rather than aborting the rest of the extraction.
func (a *OpenedArchive) extractHardlink(ctx context.Context, outDir string, e vfadata.Entry) {
	if e.Meta == nil || e.Meta.HardlinkTo == "" {
		logging.Debugf(ctx, "hardlink %q: entry has no hardlink_to", e.Path)
		return
	}
	target := outPath(outDir, e.Meta.HardlinkTo)
	if _, err := os.Lstat(target); os.IsNotExist(err) {
		logging.Debugf(ctx, "hardlink %q: target %q missing", e.Path, e.Meta.HardlinkTo)
		return
	}
	p := outPath(outDir, e.Path)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		logging.Debugf(ctx, "hardlink %q: mkdir: %s", e.Path, err)
		return
	}
	_ = os.Remove(p)
	if err := os.Link(target, p); err != nil {
		logging.Debugf(ctx, "hardlink %q -> %q: %s", e.Path, e.Meta.HardlinkTo, err)
	}
}
