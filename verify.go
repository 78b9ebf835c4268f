// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfa

import (
	"bytes"
	"io"

	"github.com/luci/luci-go/common/errors"

	"github.com/tg11-org/vfa/vfadata"
)

// VerifyReport summarizes a Verify pass.
type VerifyReport struct {
	Files  int
	Blocks int
}

// Verify implements the test procedure: it recomputes the stored-kind
// hash over everything but the footer and compares it against the
// footer's digest, then either walks every file's blocks (block mode)
// or decodes the whole solid stream and checks its total size (solid
// mode). It does not write anything to disk.
func Verify(r io.ReadSeeker, password []byte) (*VerifyReport, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Annotate(err).Reason("seeking to end").Err()
	}

	var opts []OpenOption
	if len(password) > 0 {
		opts = append(opts, WithOpenPassword(password))
	}
	a, err := Open(r, opts...)
	if err != nil {
		return nil, err
	}

	if err := verifyDigest(r, a, size); err != nil {
		return nil, err
	}

	if a.Header.Solid() {
		return verifySolid(a)
	}
	return verifyBlockMode(a)
}

func verifyDigest(r io.ReadSeeker, a *OpenedArchive, fileSize int64) error {
	hasher, err := a.Footer.HashKind.New()
	if err != nil {
		return errors.Annotate(err).Reason("initializing hash").Err()
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return errors.Annotate(err).Reason("seeking to start").Err()
	}
	n := fileSize - int64(vfadata.FooterSize)
	if n < 0 {
		return errors.Reason("archive shorter than one footer").Err()
	}
	if _, err := io.Copy(hasher, io.LimitReader(r, n)); err != nil {
		return errors.Annotate(err).Reason("hashing archive body").Err()
	}
	got := vfadata.Digest(hasher)
	want := a.Footer.Digest[:]
	if !bytes.Equal(got, want) {
		return errors.Reason("integrity digest mismatch").Err()
	}
	return nil
}

func verifyBlockMode(a *OpenedArchive) (*VerifyReport, error) {
	if _, err := a.r.Seek(int64(vfadata.HeaderSize), io.SeekStart); err != nil {
		return nil, errors.Annotate(err).Reason("seeking to block stream").Err()
	}
	report := &VerifyReport{}
	for _, e := range a.TOC.Entries {
		if e.Kind != vfadata.KindFile {
			continue
		}
		report.Files++
		for _, desc := range e.Blocks {
			method, payload, err := vfadata.ReadFrame(a.r)
			if err != nil {
				return nil, errors.Annotate(err).Reason("reading block %(index)d of %(path)q").
					D("index", desc.Index).D("path", e.Path).Err()
			}
			if uint32(len(payload)) != desc.CompressedSize {
				return nil, errors.Reason("block %(index)d of %(path)q: frame length %(got)d != csz %(want)d").
					D("index", desc.Index).D("path", e.Path).D("got", len(payload)).D("want", desc.CompressedSize).Err()
			}
			if a.Header.Encrypted() {
				payload, err = vfadata.Open(a.key, a.Header, desc.Index, payload, []byte("vfa-data"))
				if err != nil {
					return nil, errors.Annotate(err).Reason("decrypting block %(index)d of %(path)q").
						D("index", desc.Index).D("path", e.Path).Err()
				}
			}
			plain, err := method.Decompress(payload)
			if err != nil {
				return nil, errors.Annotate(err).Reason("decompressing block %(index)d of %(path)q").
					D("index", desc.Index).D("path", e.Path).Err()
			}
			if uint32(len(plain)) != desc.UncompressedSize {
				return nil, errors.Reason("block %(index)d of %(path)q: decompressed length %(got)d != usz %(want)d").
					D("index", desc.Index).D("path", e.Path).D("got", len(plain)).D("want", desc.UncompressedSize).Err()
			}
			report.Blocks++
		}
	}
	return report, nil
}

func verifySolid(a *OpenedArchive) (*VerifyReport, error) {
	var want uint64
	files := 0
	for _, e := range a.TOC.Entries {
		if e.Kind == vfadata.KindFile {
			files++
			want += e.Size
		}
	}
	solid, err := a.decodeSolidStream()
	if err != nil {
		return nil, errors.Annotate(err).Reason("decoding solid stream").Err()
	}
	if uint64(len(solid)) != want {
		return nil, errors.Reason("solid stream decoded to %(got)d bytes, expected %(want)d").
			D("got", len(solid)).D("want", want).Err()
	}
	return &VerifyReport{Files: files}, nil
}
