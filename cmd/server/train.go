// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/affinity/internal/embedding"
	"github.com/tomtom215/affinity/internal/logging"
)

// trainOutput is printed by the train command.
type trainOutput struct {
	UpdatedCount    int     `json:"updated_count"`
	DurationSeconds float64 `json:"duration_seconds"`
	ModelVersion    string  `json:"model_version"`
	ActiveUsers     int     `json:"active_users"`
	Skipped         bool    `json:"skipped,omitempty"`
	Reason          string  `json:"reason,omitempty"`
}

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run one batch training cycle and exit",
		Long: `Runs the full pipeline once: load signals, factorize, encode profiles,
compose and persist embeddings, then invalidate the recommendation cache.
The result is printed as JSON. A skipped run (too little data) exits 0.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			timeout, _ := cmd.Flags().GetDuration("timeout")
			if timeout <= 0 {
				timeout = cfg.Embedding.TrainTimeout
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			c, err := openComponents(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.close()

			res, err := c.trainer.Train(ctx, embedding.TriggerManual)
			if err != nil {
				return fmt.Errorf("training failed: %w", err)
			}
			logger := logging.Ctx(ctx)
			logger.Info().Int("updated", res.UpdatedCount).Bool("skipped", res.Skipped).Msg("Training finished")
			return writeTrainResult(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Duration("timeout", 0, "Abort the run after this long (default: TRAIN_TIMEOUT)")
	return cmd
}

func writeTrainResult(w io.Writer, res *embedding.TrainResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(trainOutput{
		UpdatedCount:    res.UpdatedCount,
		DurationSeconds: math.Round(res.Duration.Seconds()*100) / 100,
		ModelVersion:    res.ModelVersion,
		ActiveUsers:     res.ActiveUsers,
		Skipped:         res.Skipped,
		Reason:          res.Reason,
	})
}
