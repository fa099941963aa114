// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/affinity/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the embedding table and vector index, then exit",
		Long: `Creates the pgvector extension and the user embedding table if they
are missing. The ANN index is created as well when the table already
has rows. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Embedding.TrainTimeout)
			defer cancel()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					logging.Error().Err(err).Msg("Error closing database")
				}
			}()

			if err := st.EnsureIndex(ctx); err != nil {
				return err
			}
			count, err := st.CountEmbeddings(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema ready: %d embeddings, behavior events %s\n",
				count, availability(st.BehaviorAvailable()))
			return err
		},
	}
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "missing"
}
