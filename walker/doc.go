// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package walker produces a deterministic stream of filesystem entries
// for the writer to consume, and the platform-specific metadata
// capture/apply adapters it pairs each entry with.
//
// The core walk (Walk) is platform-independent; metadata capture and
// apply are split into attrs_posix.go and attrs_windows.go behind the
// Capture/Apply functions, selected at compile time by build tag.
package walker
