// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"

	"github.com/luci/luci-go/common/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/scrypt"
)

// KDFID identifies the password-based key derivation function used to
// turn a password into the 32-byte AEAD key.
type KDFID byte

const (
	KDFNone     KDFID = 0
	KDFArgon2id KDFID = 1
	KDFScrypt   KDFID = 2
)

// Default KDF parameters, per spec.
const (
	DefaultArgon2Time    = 3
	DefaultArgon2MemKiB  = 262144
	DefaultArgon2Lanes   = 4
	DefaultScryptN       = 32768
	DefaultScryptR       = 8
	DefaultScryptP       = 1
	AEADKeySize          = 32
)

// AEADID identifies the authenticated encryption scheme sealing blocks
// and the TOC. Only AES-256-GCM is defined.
type AEADID byte

const (
	AEADNone    AEADID = 0
	AEADAESGCM  AEADID = 1
)

// TOCBlockIndex is the sentinel logical block index used when sealing
// the table of contents.
const TOCBlockIndex uint64 = 1<<64 - 1

// nonceLabel is appended to the nonce derivation input, per spec.
const nonceLabel = "vfa-nonce"

// NonceFor deterministically derives the 12-byte AEAD nonce for logical
// block index i from the header's nonce prefix:
// first 12 bytes of SHA-256(prefix || LE64(i) || "vfa-nonce").
func NonceFor(prefix [12]byte, index uint64) [12]byte {
	h := sha256.New()
	h.Write(prefix[:])
	var idxBuf [8]byte
	binary.LittleEndian.PutUint64(idxBuf[:], index)
	h.Write(idxBuf[:])
	h.Write([]byte(nonceLabel))
	sum := h.Sum(nil)
	var out [12]byte
	copy(out[:], sum[:12])
	return out
}

// DeriveKey derives the 32-byte AEAD key from password using the KDF
// and parameters recorded in header.
func DeriveKey(password []byte, h *Header) ([]byte, error) {
	switch h.KDFID {
	case KDFArgon2id:
		t, m, p := h.KDFT, h.KDFM, h.KDFP
		if t == 0 {
			t = DefaultArgon2Time
		}
		if m == 0 {
			m = DefaultArgon2MemKiB
		}
		if p == 0 {
			p = DefaultArgon2Lanes
		}
		return argon2.IDKey(password, h.Salt[:], t, m, p, AEADKeySize), nil
	case KDFScrypt:
		n, r, p := int(h.KDFT), int(h.KDFM), int(h.KDFP)
		if n == 0 {
			n = DefaultScryptN
		}
		if r == 0 {
			r = DefaultScryptR
		}
		if p == 0 {
			p = DefaultScryptP
		}
		key, err := scrypt.Key(password, h.Salt[:], n, r, p, AEADKeySize)
		if err != nil {
			return nil, errors.Annotate(err).Reason("scrypt key derivation").Err()
		}
		return key, nil
	}
	return nil, errors.Reason("archive is not password-protected").Err()
}

// RandomSalt returns a fresh random 16-byte KDF salt.
func RandomSalt() ([16]byte, error) {
	var salt [16]byte
	_, err := rand.Read(salt[:])
	return salt, err
}

// RandomNoncePrefix returns a fresh random 12-byte AEAD nonce prefix.
func RandomNoncePrefix() ([12]byte, error) {
	var p [12]byte
	_, err := rand.Read(p[:])
	return p, err
}

func gcmFor(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Annotate(err).Reason("aes key setup").Err()
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext under key, the deterministic nonce for index,
// and aad, per header.AEADID. It is the sole authenticated-encryption
// entry point; an unsupported AEADID fails before anything is sealed.
func Seal(key []byte, h *Header, index uint64, plaintext, aad []byte) ([]byte, error) {
	if h.AEADID != AEADAESGCM {
		return nil, errors.Reason("AEAD unavailable").Err()
	}
	aead, err := gcmFor(key)
	if err != nil {
		return nil, err
	}
	nonce := NonceFor(h.AEADNoncePrefix, index)
	return aead.Seal(nil, nonce[:], plaintext, aad), nil
}

// Open decrypts ciphertext sealed by Seal with the same index and aad.
// Authentication failure (wrong password, corruption, tampering) is
// the underlying cipher.AEAD error, annotated as an AEAD
// authentication failure.
func Open(key []byte, h *Header, index uint64, ciphertext, aad []byte) ([]byte, error) {
	if h.AEADID != AEADAESGCM {
		return nil, errors.Reason("AEAD unavailable").Err()
	}
	aead, err := gcmFor(key)
	if err != nil {
		return nil, err
	}
	nonce := NonceFor(h.AEADNoncePrefix, index)
	pt, err := aead.Open(nil, nonce[:], ciphertext, aad)
	if err != nil {
		return nil, errors.Annotate(err).Reason("AEAD authentication failed").Err()
	}
	return pt, nil
}
