// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/tomtom215/affinity/docs"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	rootCmd := &cobra.Command{
		Use:   "affinity",
		Short: "Match embedding and recommendation service",
		Long: `affinity learns user embeddings from swipes, behavior events and
profile data, keeps them fresh as events arrive and serves
similarity-ranked match candidates over HTTP.

Without a subcommand it runs the server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	rootCmd.AddCommand(
		serve,
		newTrainCmd(),
		newMigrateCmd(),
	)
	return rootCmd
}
