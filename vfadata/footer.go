// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"encoding/binary"
	"io"

	"github.com/luci/luci-go/common/errors"
)

// FooterSize is the exact, fixed size of a packed Footer.
const FooterSize = 8 + 4 + 1 + DigestSlotSize + 5

// Footer is the trailing fixed record of a VFA archive.
type Footer struct {
	TOCOffset uint64
	TOCSize   uint32
	HashKind  HashKind
	Digest    [DigestSlotSize]byte
}

// Pack writes the fixed-size packed footer to w.
func (f *Footer) Pack(w io.Writer) error {
	buf := make([]byte, 0, FooterSize)
	buf = binary.LittleEndian.AppendUint64(buf, f.TOCOffset)
	buf = binary.LittleEndian.AppendUint32(buf, f.TOCSize)
	buf = append(buf, byte(f.HashKind))
	buf = append(buf, f.Digest[:]...)
	buf = append(buf, EndMagic...)
	if len(buf) != FooterSize {
		panic("vfadata: footer pack size mismatch")
	}
	_, err := w.Write(buf)
	return err
}

// readSeeker is the minimal interface ParseFooter needs from its
// source: random access to seek to the trailing fixed record.
type readSeeker interface {
	io.Reader
	io.Seeker
}

// ParseFooter seeks to the last FooterSize bytes of r and parses the
// footer. The Seeker's position on return is unspecified; callers that
// need a known cursor position should Seek again afterward.
func ParseFooter(r readSeeker) (*Footer, error) {
	if _, err := r.Seek(-FooterSize, io.SeekEnd); err != nil {
		return nil, errors.Annotate(err).Reason("seeking to footer").Err()
	}
	buf := make([]byte, FooterSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Annotate(err).Reason("reading footer").Err()
	}

	f := &Footer{}
	f.TOCOffset = binary.LittleEndian.Uint64(buf[0:8])
	f.TOCSize = binary.LittleEndian.Uint32(buf[8:12])
	f.HashKind = HashKind(buf[12])
	copy(f.Digest[:], buf[13:13+DigestSlotSize])
	end := buf[13+DigestSlotSize:]
	if string(end) != EndMagic {
		return nil, errors.Annotate(ErrBadEndMagic).Reason("end magic %(magic)q").
			D("magic", string(end)).Err()
	}
	return f, nil
}
