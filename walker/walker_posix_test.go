// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !windows

package walker

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tg11-org/vfa/vfadata"
)

func TestWalkHardlinkCollapsing(t *testing.T) {
	t.Parallel()

	Convey("hardlinked files collapse to one file plus hardlink entries", t, func() {
		root := t.TempDir()
		first := filepath.Join(root, "first.bin")
		second := filepath.Join(root, "second.bin")
		So(os.WriteFile(first, []byte("shared content"), 0644), ShouldBeNil)
		So(os.Link(first, second), ShouldBeNil)

		items, err := Walk([]string{root})
		So(err, ShouldBeNil)

		base := filepath.Base(root)
		byPath := map[string]Item{}
		for _, it := range items {
			byPath[it.Path] = it
		}

		So(byPath[base+"/first.bin"].Kind, ShouldEqual, vfadata.KindFile)
		So(byPath[base+"/second.bin"].Kind, ShouldEqual, vfadata.KindHardlink)
		So(byPath[base+"/second.bin"].HardlinkTo, ShouldEqual, base+"/first.bin")
	})
}
