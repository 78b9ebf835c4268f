// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tg11-org/vfa/vfadata"
	"github.com/tg11-org/vfa/walker"
)

// packFlags collects the create-time options that addPackFlags
// registers. The append and extract subcommands register their own
// flags and reuse packFlags only for its compressionMethod and
// captureOptions helpers.
type packFlags struct {
	method       string
	level        int
	blockExp     uint8
	solid        bool
	solidChunk   uint8
	solidBy      string
	password     bool
	winMeta      bool
	posixMeta    bool
	xattrs       bool
	acl          bool
	selinux      bool
	sparse       bool
	kdfTime      uint32
	kdfMemKiB    uint32
	kdfParallel  uint8
	scryptN      uint32
	scryptR      uint32
	scryptP      uint8
}

func addPackFlags(cmd *cobra.Command, f *packFlags) {
	cmd.Flags().StringVar(&f.method, "method", "zstd", "compression method: none, zlib, lzma, brotli, zstd")
	cmd.Flags().IntVar(&f.level, "level", 3, "compression level")
	cmd.Flags().Uint8Var(&f.blockExp, "block-exp", 20, "block size exponent (block size = 2^N bytes)")
	cmd.Flags().BoolVar(&f.solid, "solid", false, "pack as a single concatenated solid stream")
	cmd.Flags().Uint8Var(&f.solidChunk, "solid-chunk-exp", 0, "split the solid stream into 2^N-byte chunks")
	cmd.Flags().StringVar(&f.solidBy, "solid-by", "none", "solid ordering key: none, ext")
	cmd.Flags().BoolVar(&f.password, "password", false, "prompt for a password and encrypt the archive")
	cmd.Flags().BoolVar(&f.winMeta, "winmeta", false, "capture Windows attributes/security/ADS")
	cmd.Flags().BoolVar(&f.posixMeta, "posixmeta", false, "capture POSIX owner/mode/times")
	cmd.Flags().BoolVar(&f.xattrs, "xattrs", false, "capture extended attributes")
	cmd.Flags().BoolVar(&f.acl, "acl", false, "capture POSIX ACLs via getfacl/setfacl")
	cmd.Flags().BoolVar(&f.selinux, "selinux", false, "capture the SELinux security context")
	cmd.Flags().BoolVar(&f.sparse, "sparse", false, "detect and re-punch sparse file holes")
	cmd.Flags().Uint32Var(&f.kdfTime, "kdf-time", 0, "Argon2id time cost (0 = default)")
	cmd.Flags().Uint32Var(&f.kdfMemKiB, "kdf-mem-kib", 0, "Argon2id memory cost in KiB (0 = default)")
	cmd.Flags().Uint8Var(&f.kdfParallel, "kdf-parallel", 0, "Argon2id parallelism (0 = default)")
	cmd.Flags().Uint32Var(&f.scryptN, "scrypt-n", 0, "scrypt N parameter (0 = default)")
	cmd.Flags().Uint32Var(&f.scryptR, "scrypt-r", 0, "scrypt r parameter (0 = default)")
	cmd.Flags().Uint8Var(&f.scryptP, "scrypt-p", 0, "scrypt p parameter (0 = default)")
}

func (f *packFlags) compressionMethod() (vfadata.CompressionMethod, error) {
	switch f.method {
	case "none":
		return vfadata.MethodNone, nil
	case "zlib":
		return vfadata.MethodZlib, nil
	case "lzma":
		return vfadata.MethodLZMA, nil
	case "brotli":
		return vfadata.MethodBrotli, nil
	case "zstd":
		return vfadata.MethodZstd, nil
	}
	return 0, fmt.Errorf("unknown compression method %q", f.method)
}

// kdfParams selects the raw KDF tuning parameters matching kdf: Argon2id
// reads --kdf-time/--kdf-mem-kib/--kdf-parallel, scrypt reads
// --scrypt-n/--scrypt-r/--scrypt-p.
func (f *packFlags) kdfParams(kdf vfadata.KDFID) (t, m uint32, p uint8) {
	if kdf == vfadata.KDFScrypt {
		return f.scryptN, f.scryptR, f.scryptP
	}
	return f.kdfTime, f.kdfMemKiB, f.kdfParallel
}

func (f *packFlags) captureOptions() walker.CaptureOptions {
	return walker.CaptureOptions{
		Posix:   f.posixMeta,
		Xattrs:  f.xattrs,
		ACL:     f.acl,
		SELinux: f.selinux,
		Sparse:  f.sparse,
		WinMeta: f.winMeta,
	}
}

// promptPassword reads a password from the controlling terminal
// without echoing it, for --password.
func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return pw, nil
}
