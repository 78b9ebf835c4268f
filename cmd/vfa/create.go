// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	vfa "github.com/tg11-org/vfa"
	"github.com/tg11-org/vfa/vfadata"
	"github.com/tg11-org/vfa/walker"
)

func newCreateCmd() *cobra.Command {
	var flags packFlags

	cmd := &cobra.Command{
		Use:   "c OUT INPUT...",
		Short: "create a new archive",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd.Context(), args[0], args[1:], &flags)
		},
	}
	addPackFlags(cmd, &flags)
	return cmd
}

func runCreate(ctx context.Context, out string, roots []string, flags *packFlags) error {
	method, err := flags.compressionMethod()
	if err != nil {
		return err
	}

	items, err := walker.Walk(roots)
	if err != nil {
		return fmt.Errorf("scanning input paths: %w", err)
	}

	options := []vfa.CreateOption{
		vfa.WithMethod(method, flags.level),
		vfa.WithBlockExp(flags.blockExp),
		vfa.WithHash(vfadata.DefaultHashKind()),
		vfa.WithCapture(flags.captureOptions()),
	}
	if flags.solid {
		options = append(options, vfa.WithSolid(flags.solidBy))
		if flags.solidChunk != 0 {
			options = append(options, vfa.WithSolidChunkExp(flags.solidChunk))
		}
	}
	if flags.password {
		pw, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		const kdf = vfadata.KDFArgon2id
		options = append(options, vfa.WithPassword(pw, kdf))
		t, m, p := flags.kdfParams(kdf)
		options = append(options, vfa.WithKDFParams(t, m, p))
	}

	progress := mpb.New(mpb.WithWidth(64))
	bar := progress.New(int64(len(items)),
		mpb.BarStyle(),
		mpb.PrependDecorators(decor.Name("packing")),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")))
	done := 0
	options = append(options, vfa.WithProgress(func(d, total int) {
		bar.IncrBy(d - done)
		done = d
	}))

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := vfa.CreateFromPaths(ctx, f, roots, options...); err != nil {
		progress.Wait()
		return fmt.Errorf("creating archive: %w", err)
	}
	progress.Wait()

	log.Infof("Created %s with %d entry(s). Solid=%v", out, len(items), flags.solid)
	return nil
}
