// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"encoding/binary"
	"io"

	"github.com/luci/luci-go/common/errors"
)

// Flag bits for Header.Flags. The two are independent.
const (
	FlagEncrypted uint32 = 1 << 0
	FlagSolid     uint32 = 1 << 1
)

// HeaderSize is the fixed, content-independent size of a packed Header.
const HeaderSize = 4 + 2 + 4 + 1 + 1 + 1 + 2 + 4 + 1 + 4 + 4 + 1 + 16 + 1 + 12 + 16

// Header is the fixed opening record of a VFA archive. It is fully
// self-describing: parsing it never requires the footer.
type Header struct {
	Version uint16
	Flags   uint32

	DefaultMethod CompressionMethod
	DefaultLevel  uint8
	BlockExp      uint8

	ThreadsHint uint16
	RAMMiBHint  uint32

	KDFID KDFID
	KDFT  uint32
	KDFM  uint32
	KDFP  uint8
	Salt  [16]byte

	AEADID          AEADID
	AEADNoncePrefix [12]byte

	Reserved [16]byte
}

// BlockSize is 2^BlockExp, the size of a block-mode read chunk.
func (h *Header) BlockSize() int64 { return int64(1) << h.BlockExp }

// Encrypted reports whether FlagEncrypted is set.
func (h *Header) Encrypted() bool { return h.Flags&FlagEncrypted != 0 }

// Solid reports whether FlagSolid is set.
func (h *Header) Solid() bool { return h.Flags&FlagSolid != 0 }

// Pack writes the fixed-size packed header to w.
func (h *Header) Pack(w io.Writer) error {
	buf := make([]byte, 0, HeaderSize)
	buf = append(buf, Magic...)
	buf = binary.LittleEndian.AppendUint16(buf, h.Version)
	buf = binary.LittleEndian.AppendUint32(buf, h.Flags)
	buf = append(buf, byte(h.DefaultMethod), h.DefaultLevel, h.BlockExp)
	buf = binary.LittleEndian.AppendUint16(buf, h.ThreadsHint)
	buf = binary.LittleEndian.AppendUint32(buf, h.RAMMiBHint)
	buf = append(buf, byte(h.KDFID))
	buf = binary.LittleEndian.AppendUint32(buf, h.KDFT)
	buf = binary.LittleEndian.AppendUint32(buf, h.KDFM)
	buf = append(buf, h.KDFP)
	buf = append(buf, h.Salt[:]...)
	buf = append(buf, byte(h.AEADID))
	buf = append(buf, h.AEADNoncePrefix[:]...)
	buf = append(buf, h.Reserved[:]...)

	if len(buf) != HeaderSize {
		panic("vfadata: header pack size mismatch")
	}
	_, err := w.Write(buf)
	return err
}

// ParseHeader reads and validates a packed Header from r.
func ParseHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Annotate(err).Reason("reading header").Err()
	}
	if string(buf[:4]) != Magic {
		return nil, errors.Annotate(ErrBadMagic).Reason("magic %(magic)q").
			D("magic", string(buf[:4])).Err()
	}

	h := &Header{}
	p := buf[4:]
	h.Version = binary.LittleEndian.Uint16(p[0:2])
	h.Flags = binary.LittleEndian.Uint32(p[2:6])
	h.DefaultMethod = CompressionMethod(p[6])
	h.DefaultLevel = p[7]
	h.BlockExp = p[8]
	h.ThreadsHint = binary.LittleEndian.Uint16(p[9:11])
	h.RAMMiBHint = binary.LittleEndian.Uint32(p[11:15])
	h.KDFID = KDFID(p[15])
	h.KDFT = binary.LittleEndian.Uint32(p[16:20])
	h.KDFM = binary.LittleEndian.Uint32(p[20:24])
	h.KDFP = p[24]
	copy(h.Salt[:], p[25:41])
	h.AEADID = AEADID(p[41])
	copy(h.AEADNoncePrefix[:], p[42:54])
	copy(h.Reserved[:], p[54:70])

	if h.Version > Version {
		return nil, errors.Reason("unsupported version %(ver)d > %(ours)d").
			D("ver", h.Version).D("ours", Version).Err()
	}
	return h, nil
}
