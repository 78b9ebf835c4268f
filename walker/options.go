// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package walker

// CaptureOptions selects which metadata-capture adapters run. Fields
// that don't apply to the host platform are simply ignored by that
// platform's Capture/Apply implementation.
type CaptureOptions struct {
	Posix   bool
	Xattrs  bool
	ACL     bool
	SELinux bool
	Sparse  bool
	WinMeta bool
}
