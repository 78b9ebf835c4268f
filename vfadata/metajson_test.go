// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMetaJSON(t *testing.T) {
	t.Parallel()

	Convey("MetaJSON", t, func() {
		Convey("nil marshals to nil", func() {
			b, err := MarshalMeta(nil)
			So(err, ShouldBeNil)
			So(b, ShouldBeNil)
		})

		Convey("empty value marshals to nil", func() {
			b, err := MarshalMeta(&MetaJSON{})
			So(err, ShouldBeNil)
			So(b, ShouldBeNil)
		})

		Convey("empty bytes unmarshal to nil", func() {
			m, err := UnmarshalMeta(nil)
			So(err, ShouldBeNil)
			So(m, ShouldBeNil)
		})

		Convey("round trip with known fields", func() {
			m := &MetaJSON{
				Posix: &PosixMeta{UID: 1000, GID: 1000, Mode: 0644, MtimeNs: 123456789},
				Xattrs: map[string]string{
					"user.comment": "deadbeef",
				},
				ACL:        "user::rwx,group::r-x,other::r--",
				SELinux:    "unconfined_u:object_r:user_home_t:s0",
				Holes:      []Hole{{Offset: 0, Length: 4096}, {Offset: 8192, Length: 4096}},
				LinkTarget: "../elsewhere",
				HardlinkTo: "first/seen/path",
				Win: &WinMeta{
					Attributes: 0x20,
					SDDL:       "O:BAG:BAD:(A;;FA;;;BA)",
					Streams:    []ADSStream{{Name: "Zone.Identifier", Data: []byte("[ZoneTransfer]")}},
				},
			}

			b, err := MarshalMeta(m)
			So(err, ShouldBeNil)
			So(b, ShouldNotBeNil)

			got, err := UnmarshalMeta(b)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, m)
		})

		Convey("Hole marshals as a two-element array", func() {
			b, err := json.Marshal(Hole{Offset: 10, Length: 20})
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "[10,20]")
		})

		Convey("unknown top-level keys are preserved in Extra", func() {
			raw := []byte(`{"posix":{"uid":0,"gid":0,"mode":420,"atime_ns":0,"mtime_ns":0,"ctime_ns":0},"future_field":{"x":1}}`)
			m, err := UnmarshalMeta(raw)
			So(err, ShouldBeNil)
			So(m.Posix, ShouldNotBeNil)
			So(m.Extra, ShouldNotBeNil)
			So(string(m.Extra["future_field"]), ShouldEqual, `{"x":1}`)

			// Round-tripping must not drop the unknown key.
			out, err := MarshalMeta(m)
			So(err, ShouldBeNil)
			m2, err := UnmarshalMeta(out)
			So(err, ShouldBeNil)
			So(string(m2.Extra["future_field"]), ShouldEqual, `{"x":1}`)
		})
	})
}
