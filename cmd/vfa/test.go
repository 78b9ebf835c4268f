// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	vfa "github.com/tg11-org/vfa"
)

func newTestCmd() *cobra.Command {
	var password bool

	cmd := &cobra.Command{
		Use:   "t ARCHIVE",
		Short: "verify the integrity of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(args[0], password)
		},
	}
	cmd.Flags().BoolVar(&password, "password", false, "prompt for the archive's password")
	return cmd
}

func runTest(archive string, needsPassword bool) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	var pw []byte
	if needsPassword {
		pw, err = promptPassword("Password: ")
		if err != nil {
			return err
		}
	}

	report, err := vfa.Verify(f, pw)
	if err != nil {
		return fmt.Errorf("%s: FAILED: %w", archive, err)
	}

	log.Infof("%s: OK (%d files, %d blocks checked)", archive, report.Files, report.Blocks)
	return nil
}
