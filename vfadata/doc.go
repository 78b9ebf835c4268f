// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package vfadata implements the low-level binary codec for the VFA
// (Versioned File Archive) container: the fixed header, the block
// stream framing, the table of contents, the trailing footer, the
// compression and hash facades, and the crypto layer (KDF + AEAD).
//
// Nothing in this package touches the filesystem; it only packs and
// parses byte streams. The engine in the parent package orchestrates
// these primitives against real files.
package vfadata
