// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"crypto/sha256"
	"hash"

	"github.com/cespare/xxhash/v2"
	"github.com/luci/luci-go/common/errors"
	"lukechampine.com/blake3"
)

// HashKind identifies the integrity hash sealed into the footer.
type HashKind byte

// The closed enumeration of hash kinds a VFA archive may use.
const (
	HashNone   HashKind = 0
	HashSHA256 HashKind = 1
	HashBLAKE3 HashKind = 2
	HashXXH64  HashKind = 3
)

// DigestSlotSize is the fixed width of the footer's digest field.
// Native digests shorter than this are right-padded with zero bytes.
const DigestSlotSize = 32

// Valid returns nil iff k is a known hash kind.
func (k HashKind) Valid() error {
	switch k {
	case HashNone, HashSHA256, HashBLAKE3, HashXXH64:
		return nil
	}
	return errors.Reason("unknown hash kind 0x%(k)x").D("k", byte(k)).Err()
}

func (k HashKind) String() string {
	switch k {
	case HashNone:
		return "none"
	case HashSHA256:
		return "sha256"
	case HashBLAKE3:
		return "blake3"
	case HashXXH64:
		return "xxh64"
	}
	return "unknown"
}

type nullHash struct{}

func (nullHash) Write(p []byte) (int, error) { return len(p), nil }
func (nullHash) Sum(b []byte) []byte         { return b }
func (nullHash) Reset()                      {}
func (nullHash) Size() int                   { return 0 }
func (nullHash) BlockSize() int              { return 0 }

// New returns a fresh hash.Hash for k.
func (k HashKind) New() (hash.Hash, error) {
	switch k {
	case HashNone:
		return nullHash{}, nil
	case HashSHA256:
		return sha256.New(), nil
	case HashBLAKE3:
		h, err := blake3.New(32, nil)
		if err != nil {
			return nil, errors.Annotate(err).Reason("blake3 unavailable").Err()
		}
		return h, nil
	case HashXXH64:
		return xxhash.New(), nil
	}
	return nil, errors.Annotate(k.Valid()).Reason("algorithm unavailable").Err()
}

// DefaultHashKind prefers xxh64, falling back to blake3 then sha256.
// All three are always linked in, so this always succeeds.
func DefaultHashKind() HashKind { return HashXXH64 }

// Digest finalizes h into the fixed DigestSlotSize-byte footer slot,
// right-padding a shorter native digest with zeros.
func Digest(h hash.Hash) []byte {
	sum := h.Sum(nil)
	out := make([]byte, DigestSlotSize)
	copy(out, sum)
	return out
}
