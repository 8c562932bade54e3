package main

import (
	"encoding/json"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/i474232898/wellness-van-map/internal/outreach"
)

var snapshotRange string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Load every dataset once and print statistics and markers as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, log, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		snap, err := a.service.LoadAll(ctx)
		if err != nil {
			return eris.Wrap(err, "load datasets")
		}

		groups, _, _, err := a.service.Markers(ctx, outreach.ScheduleFilter{Range: outreach.ParseDateRange(snapshotRange)})
		if err != nil {
			log.Warn("schedule unavailable; printing no markers", zap.Error(err))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"statistics": snap.Statistics,
			"markers":    groups,
		})
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotRange, "range", "all", "date range for markers: all, today, upcoming, week or month")
}
