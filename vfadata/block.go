// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"encoding/binary"
	"io"

	"github.com/luci/luci-go/common/errors"
)

// FrameHeaderSize is the fixed size of a block frame's prefix: a
// 4-byte little-endian payload length followed by a 1-byte method tag.
const FrameHeaderSize = 4 + 1

// WriteFrame writes one block frame (length-prefixed payload plus its
// method tag) to w.
func WriteFrame(w io.Writer, method CompressionMethod, payload []byte) error {
	var hdr [FrameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[:4], uint32(len(payload)))
	hdr[4] = byte(method)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one block frame from r, returning its method tag and
// payload bytes.
func ReadFrame(r io.Reader) (method CompressionMethod, payload []byte, err error) {
	var hdr [FrameHeaderSize]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, errors.Annotate(err).Reason("reading frame header").Err()
	}
	length := binary.LittleEndian.Uint32(hdr[:4])
	method = CompressionMethod(hdr[4])
	payload = make([]byte, length)
	if _, err = io.ReadFull(r, payload); err != nil {
		return 0, nil, errors.Annotate(err).Reason("reading frame payload (%(len)d bytes)").D("len", length).Err()
	}
	return method, payload, nil
}
