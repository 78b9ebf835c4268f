// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"crypto/sha256"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHash(t *testing.T) {
	t.Parallel()

	Convey("HashKind", t, func() {
		Convey("Valid", func() {
			So(HashNone.Valid(), ShouldBeNil)
			So(HashXXH64.Valid(), ShouldBeNil)
			So(HashKind(200).Valid(), ShouldNotBeNil)
		})

		Convey("DefaultHashKind", func() {
			So(DefaultHashKind(), ShouldEqual, HashXXH64)
		})

		Convey("HashNone never contributes to the digest", func() {
			h, err := HashNone.New()
			So(err, ShouldBeNil)
			_, err = h.Write([]byte("anything"))
			So(err, ShouldBeNil)
			So(Digest(h), ShouldResemble, make([]byte, DigestSlotSize))
		})

		Convey("HashSHA256 fills the fixed slot exactly", func() {
			h, err := HashSHA256.New()
			So(err, ShouldBeNil)
			_, err = h.Write([]byte("hello world!"))
			So(err, ShouldBeNil)

			want := sha256.Sum256([]byte("hello world!"))
			got := Digest(h)
			So(len(got), ShouldEqual, DigestSlotSize)
			So(got, ShouldResemble, want[:])
		})

		for _, k := range []HashKind{HashSHA256, HashBLAKE3, HashXXH64} {
			k := k
			Convey(k.String()+" digest is deterministic", func() {
				h1, err := k.New()
				So(err, ShouldBeNil)
				h2, err := k.New()
				So(err, ShouldBeNil)
				_, _ = h1.Write([]byte("same input"))
				_, _ = h2.Write([]byte("same input"))
				So(Digest(h1), ShouldResemble, Digest(h2))
				So(len(Digest(h1)), ShouldEqual, DigestSlotSize)
			})
		}
	})
}
