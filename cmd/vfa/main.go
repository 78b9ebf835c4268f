// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command vfa is the CLI front end for the vfa archive format: create,
// append, list, test, and extract a single-file archive.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.StandardLogger()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel string
		verbose  bool
	)

	root := &cobra.Command{
		Use:           "vfa",
		Short:         "pack, inspect, and restore VFA archives",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			name := logLevel
			if verbose && !cmd.Flags().Changed("log-level") {
				name = "info"
			}
			if name == "quiet" {
				log.SetLevel(logrus.FatalLevel)
				return nil
			}
			lvl, err := logrus.ParseLevel(name)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level: quiet, error, warning, info, debug, trace")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"alias for --log-level info")

	root.AddCommand(
		newCreateCmd(),
		newAppendCmd(),
		newListCmd(),
		newTestCmd(),
		newExtractCmd(),
	)
	return root
}
