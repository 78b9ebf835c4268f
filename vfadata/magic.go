// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"github.com/luci/luci-go/common/errors"
)

// Magic is the 4-byte magic which opens every VFA archive.
const Magic = "VFA1"

// EndMagic is the 5-byte magic which closes every VFA footer.
const EndMagic = "/VFA1"

// Version is the only format version this package understands.
const Version uint16 = 1

// ErrBadMagic is returned by ParseHeader when the leading bytes of the
// stream are not Magic.
var ErrBadMagic = errors.New("not a VFA archive")

// ErrBadEndMagic is returned by ParseFooter when the trailing bytes of
// the stream are not EndMagic.
var ErrBadEndMagic = errors.New("bad end magic")
