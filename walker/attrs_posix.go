// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !windows

package walker

import (
	"context"
	"encoding/hex"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/luci/luci-go/common/logging"
	"github.com/pkg/xattr"

	"github.com/tg11-org/vfa/vfadata"
)

// Capture fills a MetaJSON for path per the enabled opts. Every
// optional sub-probe is best-effort: a failure to read one facet
// (permission denied on an xattr, no getfacl binary, unsupported
// filesystem) is logged at debug level and otherwise ignored, since
// losing one facet of metadata must never abort archiving the rest of
// the tree. Failing to read a symlink's target is returned as an error.
func Capture(ctx context.Context, path string, info os.FileInfo, kind vfadata.EntryKind, hardlinkTo string, opts CaptureOptions) (*vfadata.MetaJSON, error) {
	m := &vfadata.MetaJSON{}

	if opts.Posix {
		if st, ok := info.Sys().(*syscall.Stat_t); ok {
			m.Posix = &vfadata.PosixMeta{
				UID:     int(st.Uid),
				GID:     int(st.Gid),
				Mode:    int(st.Mode),
				AtimeNs: st.Atim.Sec*1e9 + st.Atim.Nsec,
				MtimeNs: st.Mtim.Sec*1e9 + st.Mtim.Nsec,
				CtimeNs: st.Ctim.Sec*1e9 + st.Ctim.Nsec,
			}
		}
	}

	if opts.Xattrs {
		if names, err := xattrList(path, kind); err != nil {
			logging.Debugf(ctx, "xattr list %q: %s", path, err)
		} else if len(names) > 0 {
			m.Xattrs = map[string]string{}
			for _, name := range names {
				if name == seLinuxXattr {
					continue // captured separately under "selinux"
				}
				val, err := xattrGet(path, name, kind)
				if err != nil {
					logging.Debugf(ctx, "xattr get %q %q: %s", path, name, err)
					continue
				}
				m.Xattrs[name] = hex.EncodeToString(val)
			}
			if len(m.Xattrs) == 0 {
				m.Xattrs = nil
			}
		}
	}

	if opts.ACL && kind != vfadata.KindSymlink {
		out, err := exec.CommandContext(ctx, "getfacl", "--omit-header", path).Output()
		if err != nil {
			logging.Debugf(ctx, "getfacl %q: %s", path, err)
		} else {
			m.ACL = strings.TrimRight(string(out), "\n")
		}
	}

	if opts.SELinux {
		val, err := xattrGet(path, seLinuxXattr, kind)
		if err != nil {
			logging.Debugf(ctx, "selinux xattr %q: %s", path, err)
		} else {
			m.SELinux = strings.TrimRight(string(val), "\x00")
		}
	}

	if kind == vfadata.KindSymlink {
		target, err := os.Readlink(path)
		if err != nil {
			return nil, err
		}
		m.LinkTarget = target
	}

	if hardlinkTo != "" {
		m.HardlinkTo = hardlinkTo
	}

	if opts.Sparse && kind == vfadata.KindFile {
		holes, err := detectHoles(path, info.Size())
		if err != nil {
			logging.Debugf(ctx, "sparse probe %q: %s", path, err)
		} else {
			m.Holes = holes
		}
	}

	return m, nil
}

const seLinuxXattr = "security.selinux"

func xattrList(path string, kind vfadata.EntryKind) ([]string, error) {
	if kind == vfadata.KindSymlink {
		return xattr.LList(path)
	}
	return xattr.List(path)
}

func xattrGet(path, name string, kind vfadata.EntryKind) ([]byte, error) {
	if kind == vfadata.KindSymlink {
		return xattr.LGet(path, name)
	}
	return xattr.Get(path, name)
}

func xattrSet(path, name string, val []byte, kind vfadata.EntryKind) error {
	if kind == vfadata.KindSymlink {
		return xattr.LSet(path, name, val)
	}
	return xattr.Set(path, name, val)
}

// Apply re-establishes captured metadata on path, best-effort exactly
// like Capture: every failure is logged at debug level and otherwise
// ignored.
func Apply(ctx context.Context, path string, meta *vfadata.MetaJSON, mode os.FileMode, mtime time.Time, kind vfadata.EntryKind, opts CaptureOptions) {
	if opts.Posix {
		if kind == vfadata.KindSymlink {
			if meta != nil && meta.Posix != nil {
				if err := os.Lchown(path, meta.Posix.UID, meta.Posix.GID); err != nil {
					logging.Debugf(ctx, "lchown %q: %s", path, err)
				}
			}
		} else {
			if err := os.Chmod(path, mode); err != nil {
				logging.Debugf(ctx, "chmod %q: %s", path, err)
			}
			if meta != nil && meta.Posix != nil {
				if err := os.Chown(path, meta.Posix.UID, meta.Posix.GID); err != nil {
					logging.Debugf(ctx, "chown %q: %s", path, err)
				}
			}
			if err := os.Chtimes(path, mtime, mtime); err != nil {
				logging.Debugf(ctx, "chtimes %q: %s", path, err)
			}
		}
	}

	if meta == nil {
		return
	}

	if opts.Xattrs {
		for name, hexVal := range meta.Xattrs {
			val, err := hex.DecodeString(hexVal)
			if err != nil {
				logging.Debugf(ctx, "decoding xattr %q %q: %s", path, name, err)
				continue
			}
			if err := xattrSet(path, name, val, kind); err != nil {
				logging.Debugf(ctx, "xattr set %q %q: %s", path, name, err)
			}
		}
	}

	if opts.ACL && meta.ACL != "" && kind != vfadata.KindSymlink {
		cmd := exec.CommandContext(ctx, "setfacl", "--set-file=-", path)
		cmd.Stdin = strings.NewReader(meta.ACL + "\n")
		if err := cmd.Run(); err != nil {
			logging.Debugf(ctx, "setfacl %q: %s", path, err)
		}
	}

	if opts.SELinux && meta.SELinux != "" {
		if err := xattrSet(path, seLinuxXattr, []byte(meta.SELinux), kind); err != nil {
			logging.Debugf(ctx, "selinux xattr set %q: %s", path, err)
		}
	}

	if opts.Sparse && kind == vfadata.KindFile && len(meta.Holes) > 0 {
		punchHoles(ctx, path, meta.Holes)
	}
}

