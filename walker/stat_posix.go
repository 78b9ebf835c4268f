// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !windows

package walker

import (
	"fmt"
	"os"
	"syscall"
)

// hardlinkKey returns a key identifying info's (dev, ino) pair, for
// collapsing hardlinked regular files during Walk. It reports ok=false
// for anything that isn't backed by a syscall.Stat_t, or that has only
// a single link (Nlink == 1, the common case, where collapsing would
// be pure overhead).
func hardlinkKey(info os.FileInfo) (key string, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st.Nlink < 2 {
		return "", false
	}
	return fmt.Sprintf("%d:%d", st.Dev, st.Ino), true
}
