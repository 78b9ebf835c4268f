// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	vfa "github.com/tg11-org/vfa"
	"github.com/tg11-org/vfa/vfadata"
)

func newListCmd() *cobra.Command {
	var password bool

	cmd := &cobra.Command{
		Use:   "l ARCHIVE",
		Short: "list the entries of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(args[0], password)
		},
	}
	cmd.Flags().BoolVar(&password, "password", false, "prompt for the archive's password")
	return cmd
}

func runList(archive string, needsPassword bool) error {
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

	var filesTotal uint64
	for _, e := range a.List() {
		if e.Kind == vfadata.KindFile {
			filesTotal += e.Size
		}
	}

	fmt.Printf("Archive: %s\n", archive)
	fmt.Printf("Version: %d, Method: %s lvl %d, Block: %dB\n",
		a.Header.Version, a.Header.DefaultMethod, a.Header.DefaultLevel, a.Header.BlockSize())
	fmt.Printf("Encrypted: %v, Solid: %v\n", a.Header.Encrypted(), a.Header.Solid())
	fmt.Printf("Entries: %d, Files total: %d bytes\n", len(a.List()), filesTotal)

	for _, e := range a.List() {
		fmt.Printf("%12d  %s  [%s]  %s  (%d)\n",
			e.Size, time.Unix(e.Mtime, 0).Format(time.RFC3339), e.Kind, e.Path, len(e.Blocks))
	}
	return nil
}
