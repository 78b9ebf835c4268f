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

func TestFrame(t *testing.T) {
	t.Parallel()

	Convey("Frame", t, func() {
		buf := &bytes.Buffer{}
		payload := bytes.Repeat([]byte("hello world!"), 100)
		So(WriteFrame(buf, MethodZstd, payload), ShouldBeNil)

		Convey("layout", func() {
			b := buf.Bytes()
			So(len(b), ShouldEqual, FrameHeaderSize+len(payload))
			So(b[4], ShouldEqual, byte(MethodZstd))
		})

		Convey("round trip", func() {
			method, got, err := ReadFrame(buf)
			So(err, ShouldBeNil)
			So(method, ShouldEqual, MethodZstd)
			So(got, ShouldResemble, payload)
		})

		Convey("short header", func() {
			_, _, err := ReadFrame(bytes.NewReader([]byte{1, 2}))
			So(err, ShouldNotBeNil)
		})

		Convey("short payload", func() {
			b := buf.Bytes()
			_, _, err := ReadFrame(bytes.NewReader(b[:len(b)-1]))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "reading frame payload")
		})

		Convey("empty payload", func() {
			empty := &bytes.Buffer{}
			So(WriteFrame(empty, MethodNone, nil), ShouldBeNil)
			method, got, err := ReadFrame(empty)
			So(err, ShouldBeNil)
			So(method, ShouldEqual, MethodNone)
			So(len(got), ShouldEqual, 0)
		})

		Convey("io.Copy friendly", func() {
			// A frame's payload can be consumed incrementally once parsed.
			method, got, err := ReadFrame(buf)
			So(err, ShouldBeNil)
			So(method, ShouldEqual, MethodZstd)
			n, err := io.Copy(io.Discard, bytes.NewReader(got))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, len(payload))
		})
	})
}
