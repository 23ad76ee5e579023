// Package cmd implements the dashboard command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// app carries global flags and the dependencies built from them.
type app struct {
	configPath  string
	debug       bool
	metricsFile string

	deps *deps
}

// Execute runs the CLI against the process's stdio.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdin, os.Stdout)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	a := &app{}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)

	err := root.ExecuteContext(ctx)
	if a.deps != nil {
		err = errors.Join(err, a.deps.close(a.metricsFile))
	}
	return err
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dashboard",
		Short:         "MarketBrewer dashboard API client",
		Long:          `Probe the MarketBrewer dashboard API and bulk import keywords, service areas and services.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["deps"] == "none" {
				return nil
			}
			d, err := newDeps(cmd.Context(), a)
			if err != nil {
				return err
			}
			a.deps = d
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"config file (default is $CONFIG_PATH or ./config.yml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "",
		"write Prometheus metrics to this textfile on exit")

	root.AddCommand(
		a.healthCommand(),
		a.waitCommand(),
		a.importCommand(),
		versionCommand(),
	)
	return root
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version number",
		Annotations: map[string]string{"deps": "none"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dashboard version %s\n", Version)
		},
	}
}

// writeMetrics exports the registry for the node_exporter textfile collector.
func writeMetrics(path string, g prometheus.Gatherer) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
