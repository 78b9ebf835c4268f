// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCrypto(t *testing.T) {
	t.Parallel()

	Convey("NonceFor", t, func() {
		var prefix [12]byte
		copy(prefix[:], "abcdefghijkl")

		Convey("deterministic", func() {
			a := NonceFor(prefix, 5)
			b := NonceFor(prefix, 5)
			So(a, ShouldResemble, b)
		})

		Convey("distinct per index", func() {
			a := NonceFor(prefix, 0)
			b := NonceFor(prefix, 1)
			So(a, ShouldNotResemble, b)
		})

		Convey("distinct for the TOC sentinel index", func() {
			a := NonceFor(prefix, 0)
			b := NonceFor(prefix, TOCBlockIndex)
			So(a, ShouldNotResemble, b)
		})
	})

	Convey("DeriveKey", t, func() {
		salt, err := RandomSalt()
		So(err, ShouldBeNil)

		Convey("argon2id", func() {
			h := &Header{KDFID: KDFArgon2id, Salt: salt}
			k1, err := DeriveKey([]byte("hunter2"), h)
			So(err, ShouldBeNil)
			So(len(k1), ShouldEqual, AEADKeySize)

			k2, err := DeriveKey([]byte("hunter2"), h)
			So(err, ShouldBeNil)
			So(k2, ShouldResemble, k1)

			k3, err := DeriveKey([]byte("different"), h)
			So(err, ShouldBeNil)
			So(k3, ShouldNotResemble, k1)
		})

		Convey("scrypt", func() {
			h := &Header{KDFID: KDFScrypt, Salt: salt}
			k, err := DeriveKey([]byte("hunter2"), h)
			So(err, ShouldBeNil)
			So(len(k), ShouldEqual, AEADKeySize)
		})

		Convey("no KDF configured", func() {
			h := &Header{KDFID: KDFNone, Salt: salt}
			_, err := DeriveKey([]byte("hunter2"), h)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Seal/Open", t, func() {
		noncePrefix, err := RandomNoncePrefix()
		So(err, ShouldBeNil)
		h := &Header{AEADID: AEADAESGCM, AEADNoncePrefix: noncePrefix}
		key := make([]byte, AEADKeySize)
		for i := range key {
			key[i] = byte(i)
		}

		Convey("round trip", func() {
			ct, err := Seal(key, h, 7, []byte("plaintext payload"), []byte("vfa-data"))
			So(err, ShouldBeNil)

			pt, err := Open(key, h, 7, ct, []byte("vfa-data"))
			So(err, ShouldBeNil)
			So(pt, ShouldResemble, []byte("plaintext payload"))
		})

		Convey("wrong index fails authentication", func() {
			ct, err := Seal(key, h, 7, []byte("plaintext payload"), []byte("vfa-data"))
			So(err, ShouldBeNil)

			_, err = Open(key, h, 8, ct, []byte("vfa-data"))
			So(err, ShouldNotBeNil)
		})

		Convey("wrong AAD fails authentication", func() {
			ct, err := Seal(key, h, 7, []byte("plaintext payload"), []byte("vfa-data"))
			So(err, ShouldBeNil)

			_, err = Open(key, h, 7, ct, []byte("vfa-toc"))
			So(err, ShouldNotBeNil)
		})

		Convey("tampered ciphertext fails authentication", func() {
			ct, err := Seal(key, h, 7, []byte("plaintext payload"), []byte("vfa-data"))
			So(err, ShouldBeNil)
			ct[0] ^= 0xFF

			_, err = Open(key, h, 7, ct, []byte("vfa-data"))
			So(err, ShouldNotBeNil)
		})
	})
}
