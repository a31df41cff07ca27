package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/stock-forecast-chart/internal/bootstrap"
	"github.com/i474232898/stock-forecast-chart/internal/config"
	"github.com/i474232898/stock-forecast-chart/internal/logging"
	"github.com/i474232898/stock-forecast-chart/internal/series"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seriesctl",
		Short:         "Fetch and inspect merged historical/forecast price series",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newFetchCmd(), newConfigCmd())
	return root
}

func newFetchCmd() *cobra.Command {
	var (
		timeout  time.Duration
		offset   int
		limit    int
		tooltips bool
	)

	cmd := &cobra.Command{
		Use:   "fetch TICKER",
		Short: "Fetch both sources once and print the merged series as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("offset") {
				cfg.ForecastDateOffset = offset
			}
			if cmd.Flags().Changed("limit") {
				cfg.HistoryLimit = limit
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: "console", Output: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}

			c, err := bootstrap.Build(cfg, logger, nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			merged, err := c.Service.Refresh(ctx, args[0])
			if err != nil {
				return err
			}

			if tooltips {
				return writeTooltips(cmd.OutOrStdout(), merged)
			}
			return writeJSON(cmd.OutOrStdout(), merged)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall fetch timeout")
	cmd.Flags().IntVar(&offset, "offset", 1, "forecast date offset (0: today+i, 1: today+i+1)")
	cmd.Flags().IntVar(&limit, "limit", 0, "keep only the last N observations (0 keeps all)")
	cmd.Flags().BoolVar(&tooltips, "tooltips", false, "print formatted tooltip rows instead of raw points")
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTooltips(w io.Writer, m series.MergedSeries) error {
	for _, p := range m.Points {
		tip := series.Tooltip(p)
		if _, err := fmt.Fprintf(w, "%s", tip.X); err != nil {
			return err
		}
		for _, row := range tip.Y {
			fmt.Fprintf(w, "  %s=%s", row.Label, row.Value)
		}
		fmt.Fprintln(w)
	}
	return nil
}
