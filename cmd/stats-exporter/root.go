package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stats-exporter/internal/agent"
	"stats-exporter/internal/config"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	root := &cobra.Command{
		Use:   "stats-exporter",
		Short: "Sample host usage statistics and serve a rolling history over HTTP",
		Long: `stats-exporter samples CPU, memory, filesystem, network and temperature
usage at a fixed interval, keeps a bounded in-memory history and serves it as
JSON. Optional blocks add per-filesystem and Kubernetes node usage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logLevel != "" {
				cfg.Log.Level = strings.ToLower(logLevel)
			}

			logger := agent.BuildLogger(cfg.Log)
			a, err := agent.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("agent initialization: %w", err)
			}
			return a.Run(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: "+config.DefaultConfigFile+" next to the binary)")
	root.Flags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stats-exporter %s\n", config.Version)
		},
	})
	return root
}
