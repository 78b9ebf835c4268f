// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfadata

import "encoding/json"

// PosixMeta carries POSIX ownership/permission/time bits captured for
// an entry.
type PosixMeta struct {
	UID      int   `json:"uid"`
	GID      int   `json:"gid"`
	Mode     int   `json:"mode"`
	AtimeNs  int64 `json:"atime_ns"`
	MtimeNs  int64 `json:"mtime_ns"`
	CtimeNs  int64 `json:"ctime_ns"`
}

// WinMeta carries Windows-specific attributes/times/ACL/ADS captured
// for an entry.
type WinMeta struct {
	Attributes uint32       `json:"attributes,omitempty"`
	CtimeNs    int64        `json:"ctime_ns,omitempty"`
	AtimeNs    int64        `json:"atime_ns,omitempty"`
	MtimeNs    int64        `json:"mtime_ns,omitempty"`
	SDDL       string       `json:"sddl,omitempty"`
	Streams    []ADSStream  `json:"streams,omitempty"`
}

// ADSStream is one captured Windows alternate data stream.
type ADSStream struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Hole is a [offset, length) sparse region of a file, recorded at
// capture and re-punched on extract. The region's zero bytes are still
// packed with the rest of the file's data.
type Hole struct {
	Offset int64
	Length int64
}

// MarshalJSON packs a Hole as the two-element [offset, length] array
// the original format uses.
func (h Hole) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{h.Offset, h.Length})
}

// UnmarshalJSON unpacks a Hole from a two-element array.
func (h *Hole) UnmarshalJSON(b []byte) error {
	var pair [2]int64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	h.Offset, h.Length = pair[0], pair[1]
	return nil
}

// MetaJSON is the decoded form of an entry's opaque metadata blob. Its
// recognized top-level keys are optional sub-records; any keys this
// version of the format doesn't know about are preserved verbatim in
// Extra so that round-tripping an archive never silently drops data.
type MetaJSON struct {
	Posix       *PosixMeta         `json:"posix,omitempty"`
	Xattrs      map[string]string  `json:"xattrs,omitempty"` // name -> hex-encoded value
	ACL         string             `json:"acl,omitempty"`
	SELinux     string             `json:"selinux,omitempty"`
	Holes       []Hole             `json:"holes,omitempty"`
	LinkTarget  string             `json:"link_target,omitempty"`
	HardlinkTo  string             `json:"hardlink_to,omitempty"`
	Win         *WinMeta           `json:"win,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// MarshalMeta encodes m to its on-disk JSON bytes. A zero-value,
// entirely-empty m encodes to nil so that entries with no metadata
// carry an empty blob rather than "{}".
func MarshalMeta(m *MetaJSON) ([]byte, error) {
	if m == nil || m.isEmpty() {
		return nil, nil
	}

	out := map[string]json.RawMessage{}
	for k, v := range m.Extra {
		out[k] = v
	}

	put := func(key string, v interface{}) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = b
		return nil
	}

	if m.Posix != nil {
		if err := put("posix", m.Posix); err != nil {
			return nil, err
		}
	}
	if len(m.Xattrs) > 0 {
		if err := put("xattrs", m.Xattrs); err != nil {
			return nil, err
		}
	}
	if m.ACL != "" {
		if err := put("acl", m.ACL); err != nil {
			return nil, err
		}
	}
	if m.SELinux != "" {
		if err := put("selinux", m.SELinux); err != nil {
			return nil, err
		}
	}
	if len(m.Holes) > 0 {
		if err := put("holes", m.Holes); err != nil {
			return nil, err
		}
	}
	if m.LinkTarget != "" {
		if err := put("link_target", m.LinkTarget); err != nil {
			return nil, err
		}
	}
	if m.HardlinkTo != "" {
		if err := put("hardlink_to", m.HardlinkTo); err != nil {
			return nil, err
		}
	}
	if m.Win != nil {
		if err := put("win", m.Win); err != nil {
			return nil, err
		}
	}

	return json.Marshal(out)
}

func (m *MetaJSON) isEmpty() bool {
	return m.Posix == nil && len(m.Xattrs) == 0 && m.ACL == "" && m.SELinux == "" &&
		len(m.Holes) == 0 && m.LinkTarget == "" && m.HardlinkTo == "" && m.Win == nil && len(m.Extra) == 0
}

// UnmarshalMeta decodes the on-disk metadata blob, preserving any
// unrecognized top-level key in the returned MetaJSON's Extra map.
func UnmarshalMeta(b []byte) (*MetaJSON, error) {
	if len(b) == 0 {
		return nil, nil
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	m := &MetaJSON{Extra: map[string]json.RawMessage{}}
	for k, v := range raw {
		switch k {
		case "posix":
			m.Posix = &PosixMeta{}
			if err := json.Unmarshal(v, m.Posix); err != nil {
				return nil, err
			}
		case "xattrs":
			if err := json.Unmarshal(v, &m.Xattrs); err != nil {
				return nil, err
			}
		case "acl":
			if err := json.Unmarshal(v, &m.ACL); err != nil {
				return nil, err
			}
		case "selinux":
			if err := json.Unmarshal(v, &m.SELinux); err != nil {
				return nil, err
			}
		case "holes":
			if err := json.Unmarshal(v, &m.Holes); err != nil {
				return nil, err
			}
		case "link_target":
			if err := json.Unmarshal(v, &m.LinkTarget); err != nil {
				return nil, err
			}
		case "hardlink_to":
			if err := json.Unmarshal(v, &m.HardlinkTo); err != nil {
				return nil, err
			}
		case "win":
			m.Win = &WinMeta{}
			if err := json.Unmarshal(v, m.Win); err != nil {
				return nil, err
			}
		default:
			m.Extra[k] = v
		}
	}
	if len(m.Extra) == 0 {
		m.Extra = nil
	}
	return m, nil
}
