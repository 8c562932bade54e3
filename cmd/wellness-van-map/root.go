package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/i474232898/wellness-van-map/internal/config"
	"github.com/i474232898/wellness-van-map/internal/observability"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:          "wellness-van-map",
	Short:        "Serve the mobile wellness van schedule map",
	Long:         "Reads the van schedule, service tracking and census tables from a Google Sheet, geocodes stops and serves map-ready views over HTTP.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		l, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return eris.Wrap(err, "init logger")
		}
		log = l

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (default ./config.yaml)")
	rootCmd.AddCommand(serveCmd, snapshotCmd)
}
