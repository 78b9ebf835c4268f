// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package walker

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/luci/luci-go/common/errors"

	"github.com/tg11-org/vfa/vfadata"
)

// Item is one tuple produced by Walk: a path as it should be recorded
// in the archive, the absolute filesystem path it was read from, the
// non-following stat result, and the entry kind it was classified as.
type Item struct {
	// Path starts with the base name of the root it was discovered
	// under, followed by the path below that root, using forward
	// slashes regardless of host OS.
	Path string
	// Abs is the absolute path on the host filesystem.
	Abs string
	Info os.FileInfo
	Kind vfadata.EntryKind

	// HardlinkTo is set only when Kind == vfadata.KindHardlink: the Path
	// (not Abs) of the first-emitted item sharing this (dev, ino) pair.
	HardlinkTo string
}

// Walk produces a finite, deterministic sequence of Items for the
// given root paths, in the order the roots are given.
//
// For a directory root, the directory itself is emitted first (so
// empty directories round-trip), then its own files and symlinks in
// lexical order, then its subdirectories (each recursed into the same
// way) in lexical order — so a directory's immediate entries stay
// contiguous and a subdirectory's whole subtree never interleaves with
// its siblings. For a file or symlink root, just that one Item is
// emitted.
//
// Regular files sharing a (dev, ino) pair on platforms that expose one
// are collapsed: the first occurrence is emitted as vfadata.KindFile,
// later occurrences as vfadata.KindHardlink entries referencing the
// first one's Path.
func Walk(roots []string) ([]Item, error) {
	w := &walkState{seen: map[string]string{}}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.Annotate(err).Reason("resolving root %(root)q").D("root", root).Err()
		}
		info, err := os.Lstat(abs)
		if err != nil {
			return nil, errors.Annotate(err).Reason("statting root %(root)q").D("root", root).Err()
		}
		name := filepath.Base(abs)
		if err := w.visit(abs, name, info); err != nil {
			return nil, err
		}
	}
	return w.items, nil
}

type walkState struct {
	items []Item
	// seen maps a hardlink key (platform-defined) to the Path of the
	// first regular file observed sharing it.
	seen map[string]string
}

func (w *walkState) visit(abs, relPath string, info os.FileInfo) error {
	switch {
	case info.IsDir():
		w.items = append(w.items, Item{Path: relPath, Abs: abs, Info: info, Kind: vfadata.KindDir})
		return w.visitDirChildren(abs, relPath)

	case info.Mode()&os.ModeSymlink != 0:
		w.items = append(w.items, Item{Path: relPath, Abs: abs, Info: info, Kind: vfadata.KindSymlink})
		return nil

	default:
		if key, ok := hardlinkKey(info); ok {
			if first, dup := w.seen[key]; dup {
				w.items = append(w.items, Item{
					Path: relPath, Abs: abs, Info: info,
					Kind: vfadata.KindHardlink, HardlinkTo: first,
				})
				return nil
			}
			w.seen[key] = relPath
		}
		w.items = append(w.items, Item{Path: relPath, Abs: abs, Info: info, Kind: vfadata.KindFile})
		return nil
	}
}

// dirChild is one stat'd entry of a directory being walked, held just
// long enough to be sorted into the files/symlinks pass or the
// subdirectory-recursion pass.
type dirChild struct {
	abs, rel string
	info     os.FileInfo
}

func (w *walkState) visitDirChildren(abs, relPath string) error {
	f, err := os.Open(abs)
	if err != nil {
		return errors.Annotate(err).Reason("opening dir %(path)q").D("path", relPath).Err()
	}
	names, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		return errors.Annotate(err).Reason("reading dir %(path)q").D("path", relPath).Err()
	}
	sort.Strings(names)

	var dirs, others []dirChild
	for _, name := range names {
		childAbs := filepath.Join(abs, name)
		childRel := relPath + "/" + name
		info, err := os.Lstat(childAbs)
		if err != nil {
			return errors.Annotate(err).Reason("statting %(path)q").D("path", childRel).Err()
		}
		c := dirChild{abs: childAbs, rel: childRel, info: info}
		if info.IsDir() {
			dirs = append(dirs, c)
		} else {
			others = append(others, c)
		}
	}

	// A directory's own files and symlinks stay contiguous immediately
	// after it; recursion into subdirectories (and everything under
	// them) is deferred until all of this directory's own entries have
	// been emitted.
	for _, c := range others {
		if err := w.visit(c.abs, c.rel, c.info); err != nil {
			return err
		}
	}
	for _, c := range dirs {
		if err := w.visit(c.abs, c.rel, c.info); err != nil {
			return err
		}
	}
	return nil
}
