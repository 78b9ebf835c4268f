// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMagic(t *testing.T) {
	t.Parallel()

	Convey("Magic", t, func() {
		So(Magic, ShouldEqual, "VFA1")
		So(EndMagic, ShouldEqual, "/VFA1")
		So(Version, ShouldEqual, uint16(1))
	})
}
