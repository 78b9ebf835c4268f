// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	vfa "github.com/tg11-org/vfa"
)

func newExtractCmd() *cobra.Command {
	var (
		outDir    string
		password  bool
		posixMeta bool
		winMeta   bool
		xattrs    bool
		acl       bool
		selinux   bool
		sparse    bool
	)

	cmd := &cobra.Command{
		Use:   "x ARCHIVE",
		Short: "extract an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var flags packFlags
			flags.posixMeta = posixMeta
			flags.winMeta = winMeta
			flags.xattrs = xattrs
			flags.acl = acl
			flags.selinux = selinux
			flags.sparse = sparse
			return runExtract(cmd.Context(), args[0], outDir, password, &flags)
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "directory to extract into")
	cmd.Flags().BoolVar(&password, "password", false, "prompt for the archive's password")
	cmd.Flags().BoolVar(&posixMeta, "posixmeta", false, "restore POSIX owner/mode/times")
	cmd.Flags().BoolVar(&winMeta, "winmeta", false, "restore Windows attributes/security/ADS")
	cmd.Flags().BoolVar(&xattrs, "xattrs", false, "restore extended attributes")
	cmd.Flags().BoolVar(&acl, "acl", false, "restore POSIX ACLs")
	cmd.Flags().BoolVar(&selinux, "selinux", false, "restore the SELinux security context")
	cmd.Flags().BoolVar(&sparse, "sparse", false, "re-punch sparse file holes")
	return cmd
}

func runExtract(ctx context.Context, archive, outDir string, needsPassword bool, flags *packFlags) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	var opts []vfa.OpenOption
	if needsPassword {
		pw, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		opts = append(opts, vfa.WithOpenPassword(pw))
	}

	a, err := vfa.Open(f, opts...)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	if err := a.Extract(ctx, outDir, flags.captureOptions()); err != nil {
		return fmt.Errorf("extracting archive: %w", err)
	}

	log.Infof("Extracted %d entry(s) to %s", len(a.List()), outDir)
	return nil
}
