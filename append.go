// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfa

import (
	"context"
	"io"
	"os"

	"github.com/luci/luci-go/common/errors"

	"github.com/tg11-org/vfa/vfadata"
	"github.com/tg11-org/vfa/walker"
)

// AppendToPaths adds the files and directories under roots to an
// existing non-solid archive, reusing its compression defaults unless
// overridden, its nonce prefix, and (for an encrypted archive) its
// derived key. The archive's block stream resumes exactly where the
// old TOC used to start; the old TOC and footer are discarded and
// rewritten to cover the combined entry set.
func AppendToPaths(ctx context.Context, f *os.File, roots []string, options ...CreateOption) error {
	opts := defaultCreateOptions()
	for _, o := range options {
		o(&opts)
	}

	var openOpts []OpenOption
	if len(opts.password) > 0 {
		openOpts = append(openOpts, WithOpenPassword(opts.password))
	}
	a, err := Open(f, openOpts...)
	if err != nil {
		return errors.Annotate(err).Reason("opening existing archive").Err()
	}
	if a.Header.Solid() {
		return errors.Reason("cannot append to a solid-mode archive").Err()
	}

	method, level := opts.method, opts.level
	if !opts.methodExplicit {
		method = a.Header.DefaultMethod
		level = int(a.Header.DefaultLevel)
	}

	var nextBlockIndex uint64
	for _, e := range a.TOC.Entries {
		nextBlockIndex += uint64(len(e.Blocks))
	}

	if err := f.Truncate(int64(a.Footer.TOCOffset)); err != nil {
		return errors.Annotate(err).Reason("truncating at old TOC offset").Err()
	}
	if _, err := f.Seek(int64(a.Footer.TOCOffset), io.SeekStart); err != nil {
		return errors.Annotate(err).Reason("seeking to old TOC offset").Err()
	}

	items, err := walker.Walk(roots)
	if err != nil {
		return errors.Annotate(err).Reason("walking input paths").Err()
	}

	newEntries := make([]vfadata.Entry, len(items))
	for i, it := range items {
		meta, err := walker.Capture(ctx, it.Abs, it.Info, it.Kind, it.HardlinkTo, opts.capture)
		if err != nil {
			return errors.Annotate(err).Reason("capturing metadata for %(path)q").D("path", it.Path).Err()
		}
		newEntries[i] = vfadata.Entry{
			Path:  it.Path,
			Mode:  uint32(it.Info.Mode()),
			Mtime: it.Info.ModTime().Unix(),
			Kind:  it.Kind,
			Meta:  meta,
		}
		if it.Kind != vfadata.KindFile {
			continue
		}
		newEntries[i].Size = uint64(it.Info.Size())
		nextBlockIndex, err = appendBlockFile(f, a.Header, a.key, method, level, nextBlockIndex, it.Abs, &newEntries[i])
		if err != nil {
			return errors.Annotate(err).Reason("packing file %(path)q").D("path", it.Path).Err()
		}
	}

	allEntries := append(a.TOC.Entries, newEntries...)

	tocOffset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Annotate(err).Reason("locating new TOC offset").Err()
	}
	tocBytes, err := (&vfadata.TOC{Entries: allEntries}).Pack(false)
	if err != nil {
		return errors.Annotate(err).Reason("packing TOC").Err()
	}
	if a.Header.Encrypted() {
		tocBytes, err = vfadata.Seal(a.key, a.Header, vfadata.TOCBlockIndex, tocBytes, []byte("vfa-toc"))
		if err != nil {
			return errors.Annotate(err).Reason("sealing TOC").Err()
		}
	}
	if _, err := f.Write(tocBytes); err != nil {
		return errors.Annotate(err).Reason("writing TOC").Err()
	}

	hashKind := a.Footer.HashKind
	if hashKind == vfadata.HashNone {
		hashKind = vfadata.DefaultHashKind()
	}
	tocEnd, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Annotate(err).Reason("locating end of new TOC").Err()
	}
	digest, err := hashRange(f, 0, tocEnd, hashKind)
	if err != nil {
		return errors.Annotate(err).Reason("recomputing integrity hash").Err()
	}

	footer := &vfadata.Footer{
		TOCOffset: uint64(tocOffset),
		TOCSize:   uint32(len(tocBytes)),
		HashKind:  hashKind,
	}
	copy(footer.Digest[:], digest)
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return errors.Annotate(err).Reason("seeking to end for footer").Err()
	}
	if err := footer.Pack(f); err != nil {
		return errors.Annotate(err).Reason("writing footer").Err()
	}
	return nil
}

// appendBlockFile packs one regular file's bytes into block-mode
// frames starting at nextBlockIndex, appending its block descriptors
// to e, and returns the updated next index.
func appendBlockFile(f *os.File, h *vfadata.Header, key []byte, method vfadata.CompressionMethod, level int, nextBlockIndex uint64, abs string, e *vfadata.Entry) (uint64, error) {
	in, err := os.Open(abs)
	if err != nil {
		return nextBlockIndex, err
	}
	defer in.Close()

	blockSize := h.BlockSize()
	buf := make([]byte, blockSize)
	for {
		n, rerr := io.ReadFull(in, buf)
		if rerr == io.EOF {
			break
		}
		if rerr != nil && rerr != io.ErrUnexpectedEOF {
			return nextBlockIndex, rerr
		}
		chunk := buf[:n]

		payload, cerr := method.Compress(level, chunk)
		if cerr != nil {
			return nextBlockIndex, cerr
		}
		if h.Encrypted() {
			payload, cerr = vfadata.Seal(key, h, nextBlockIndex, payload, []byte("vfa-data"))
			if cerr != nil {
				return nextBlockIndex, cerr
			}
		}
		if err := vfadata.WriteFrame(f, method, payload); err != nil {
			return nextBlockIndex, err
		}
		e.Blocks = append(e.Blocks, vfadata.BlockDesc{
			Index:            nextBlockIndex,
			UncompressedSize: uint32(n),
			CompressedSize:   uint32(len(payload)),
			Method:           method,
		})
		nextBlockIndex++

		if rerr == io.ErrUnexpectedEOF {
			break
		}
	}
	return nextBlockIndex, nil
}

// hashRange computes the digest of f[start:end] under kind without
// disturbing the caller's notion of the current offset beyond what a
// Seek to start then end implies.
func hashRange(f *os.File, start, end int64, kind vfadata.HashKind) ([]byte, error) {
	hasher, err := kind.New()
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.Copy(hasher, io.LimitReader(f, end-start)); err != nil {
		return nil, err
	}
	return vfadata.Digest(hasher), nil
}
