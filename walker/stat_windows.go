// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build windows

package walker

import "os"

// hardlinkKey always reports ok=false on Windows: reading a file's
// link count requires an open handle (GetFileInformationByHandle),
// which the non-following Lstat-based walk does not hold. Hardlinked
// files are archived as independent copies on this platform.
func hardlinkKey(info os.FileInfo) (key string, ok bool) {
	return "", false
}
