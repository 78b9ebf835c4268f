// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"bytes"
	"io"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCompression(t *testing.T) {
	t.Parallel()

	Convey("CompressionMethod", t, func() {
		Convey("Valid", func() {
			So(MethodNone.Valid(), ShouldBeNil)
			So(MethodZstd.Valid(), ShouldBeNil)
			So(CompressionMethod(200).Valid(), ShouldNotBeNil)
		})

		Convey("ClampLevel", func() {
			So(MethodZlib.ClampLevel(0), ShouldEqual, 1)
			So(MethodZlib.ClampLevel(99), ShouldEqual, 9)
			So(MethodBrotli.ClampLevel(99), ShouldEqual, 11)
			So(MethodZstd.ClampLevel(-99), ShouldEqual, -5)
			So(MethodZstd.ClampLevel(99), ShouldEqual, 22)
		})

		for _, m := range []CompressionMethod{MethodNone, MethodZlib, MethodLZMA, MethodBrotli, MethodZstd} {
			m := m
			Convey(m.String()+" round trip", func() {
				payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)

				buf := &bytes.Buffer{}
				wc, err := m.Writer(buf, m.ClampLevel(1))
				So(err, ShouldBeNil)
				_, err = wc.Write(payload)
				So(err, ShouldBeNil)
				So(wc.Close(), ShouldBeNil)

				rc, err := m.Reader(bytes.NewReader(buf.Bytes()))
				So(err, ShouldBeNil)
				got, err := io.ReadAll(rc)
				So(err, ShouldBeNil)
				So(rc.Close(), ShouldBeNil)
				So(got, ShouldResemble, payload)
			})
		}

		Convey("one-shot Compress/Decompress", func() {
			payload := []byte("hello one-shot world")
			c, err := MethodZstd.Compress(MethodZstd.ClampLevel(3), payload)
			So(err, ShouldBeNil)
			d, err := MethodZstd.Decompress(c)
			So(err, ShouldBeNil)
			So(d, ShouldResemble, payload)
		})

		Convey("unknown method", func() {
			_, err := CompressionMethod(200).Writer(&bytes.Buffer{}, 1)
			So(err, ShouldNotBeNil)

			_, err = CompressionMethod(200).Reader(bytes.NewReader(nil))
			So(err, ShouldNotBeNil)
		})
	})
}
