// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/luci/luci-go/common/errors"
	"github.com/ulikunitz/xz"
)

// CompressionMethod indicates the compression algorithm used for a
// block, as carried in that block's frame method tag.
type CompressionMethod byte

// The closed enumeration of compression methods a VFA archive may use.
const (
	MethodNone   CompressionMethod = 0
	MethodZlib   CompressionMethod = 1
	MethodLZMA   CompressionMethod = 2
	MethodBrotli CompressionMethod = 3
	MethodZstd   CompressionMethod = 4
)

// Valid returns nil iff m is a known method.
func (m CompressionMethod) Valid() error {
	switch m {
	case MethodNone, MethodZlib, MethodLZMA, MethodBrotli, MethodZstd:
		return nil
	}
	return errors.Reason("unknown compression method 0x%(m)x").D("m", byte(m)).Err()
}

// String implements fmt.Stringer.
func (m CompressionMethod) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodZlib:
		return "zlib"
	case MethodLZMA:
		return "lzma"
	case MethodBrotli:
		return "brotli"
	case MethodZstd:
		return "zstd"
	}
	return "unknown"
}

// ClampLevel clamps level into the legal range for m.
func (m CompressionMethod) ClampLevel(level int) int {
	switch m {
	case MethodZlib:
		return clamp(level, 1, 9)
	case MethodLZMA:
		return clamp(level, 0, 9)
	case MethodBrotli:
		return clamp(level, 0, 11)
	case MethodZstd:
		return clamp(level, -5, 22)
	}
	return level
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type zstdDecoderCloser struct {
	*zstd.Decoder
}

func (z zstdDecoderCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// Writer returns a new compressing writer implementing m at level.
// MethodLZMA ignores level and always uses the xz package's default
// writer configuration. An unrecognized or uninstalled method fails
// with "algorithm unavailable" before anything is written.
func (m CompressionMethod) Writer(w io.Writer, level int) (io.WriteCloser, error) {
	switch m {
	case MethodNone:
		return writeCloseHook{w, nil}, nil
	case MethodZlib:
		return zlib.NewWriterLevel(w, m.ClampLevel(level))
	case MethodLZMA:
		cfg := xz.WriterConfig{}
		if err := cfg.Verify(); err != nil {
			return nil, errors.Annotate(err).Reason("lzma (xz) unavailable").Err()
		}
		xw, err := cfg.NewWriter(w)
		if err != nil {
			return nil, errors.Annotate(err).Reason("lzma (xz) unavailable").Err()
		}
		return xw, nil
	case MethodBrotli:
		return brotli.NewWriterLevel(w, m.ClampLevel(level)), nil
	case MethodZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(m.ClampLevel(level))))
		if err != nil {
			return nil, errors.Annotate(err).Reason("zstd unavailable").Err()
		}
		return enc, nil
	}
	return nil, errors.Annotate(m.Valid()).Reason("algorithm unavailable").Err()
}

// Reader returns a new decompressing reader for m.
func (m CompressionMethod) Reader(r io.Reader) (io.ReadCloser, error) {
	switch m {
	case MethodNone:
		return readCloseHook{r, nil}, nil
	case MethodZlib:
		return zlib.NewReader(r)
	case MethodLZMA:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, errors.Annotate(err).Reason("lzma (xz) unavailable").Err()
		}
		return readCloseHook{xr, nil}, nil
	case MethodBrotli:
		return readCloseHook{brotli.NewReader(r), nil}, nil
	case MethodZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Annotate(err).Reason("zstd unavailable").Err()
		}
		return zstdDecoderCloser{dec}, nil
	}
	return nil, errors.Annotate(m.Valid()).Reason("algorithm unavailable").Err()
}

// Compress compresses data in one shot at level.
func (m CompressionMethod) Compress(level int, data []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	wc, err := m.Writer(buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := wc.Write(data); err != nil {
		return nil, err
	}
	if err := wc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress decompresses data in one shot.
func (m CompressionMethod) Decompress(data []byte) ([]byte, error) {
	rc, err := m.Reader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
