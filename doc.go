// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package vfa implements the Versioned File Archive format: a
// single-file archive that packs a tree of filesystem objects
// (regular files, directories, symbolic links, hard links) into one
// self-describing container and later restores it faithfully.
//
// The container supports per-block compression with pluggable
// algorithms (zlib, lzma, brotli, zstd), optional AES-256-GCM
// encryption with deterministic per-block nonces, an end-to-end
// integrity hash, two packing modes (per-file blocks, or a solid
// concatenated stream), incremental append, and preservation of
// POSIX/Windows filesystem metadata.
//
// It has a fairly basic layout:
//   - fixed header (magic "VFA1" + version + archive-wide parameters)
//   - a stream of length-prefixed, optionally-compressed-and-sealed
//     block frames
//   - a table of contents, itself optionally sealed
//   - a fixed 50-byte footer carrying the TOC's location and an
//     integrity digest over everything preceding it
//
// The on-disk codec lives in the vfadata subpackage; this package
// wires it together with a filesystem walker (the walker subpackage)
// into the writer (CreateFromPaths, AppendToPaths), the reader (Open,
// OpenedArchive.Extract), and the verifier (Verify).
package vfa
