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
	"github.com/tg11-org/vfa/vfadata"
)

func newAppendCmd() *cobra.Command {
	var (
		method   string
		level    int
		password bool
	)

	cmd := &cobra.Command{
		Use:   "a ARCHIVE INPUT...",
		Short: "append files to an existing non-solid archive",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			overridden := cmd.Flags().Changed("method") || cmd.Flags().Changed("level")
			return runAppend(cmd.Context(), args[0], args[1:], method, level, overridden, password)
		},
	}
	cmd.Flags().StringVar(&method, "method", "zstd", "compression method: none, zlib, lzma, brotli, zstd (with neither --method nor --level, the archive's own method and level are used)")
	cmd.Flags().IntVar(&level, "level", 3, "compression level (with neither --method nor --level, the archive's own method and level are used)")
	cmd.Flags().BoolVar(&password, "password", false, "prompt for the archive's password")
	return cmd
}

// runAppend packs roots into archive. methodOverridden is true only when
// the caller explicitly passed --method or --level; the pair
// (methodName, level) is then used as given, so a flag left unset takes
// its own flag default. Otherwise the archive's own
// DefaultMethod/DefaultLevel apply, per AppendToPaths.
func runAppend(ctx context.Context, archive string, roots []string, methodName string, level int, methodOverridden bool, needsPassword bool) error {
	var options []vfa.CreateOption
	if methodOverridden {
		var flags packFlags
		flags.method = methodName
		method, err := flags.compressionMethod()
		if err != nil {
			return err
		}
		options = append(options, vfa.WithMethod(method, level))
	}
	if needsPassword {
		pw, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		options = append(options, vfa.WithPassword(pw, vfadata.KDFArgon2id))
	}

	f, err := os.OpenFile(archive, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := vfa.AppendToPaths(ctx, f, roots, options...); err != nil {
		return fmt.Errorf("appending to archive: %w", err)
	}

	log.Infof("Appended %d path(s) to %s", len(roots), archive)
	return nil
}
