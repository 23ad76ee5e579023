package cmd

import (
	"errors"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/health"
)

// ErrUnhealthy makes health and wait exit non-zero.
var ErrUnhealthy = errors.New("server is not healthy")

func (a *app) healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the API health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := a.deps
			healthy := d.Client.CheckHealth(cmd.Context())
			renderHealth(cmd.OutOrStdout(), d.Client.BaseURL(), d.Client.Health().Snapshot())
			if !healthy {
				return ErrUnhealthy
			}
			return nil
		},
	}
}

func (a *app) waitCommand() *cobra.Command {
	var maxWait time.Duration

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the API reports healthy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := a.deps
			healthy := d.Client.WaitUntilHealthy(cmd.Context(), maxWait)
			renderHealth(cmd.OutOrStdout(), d.Client.BaseURL(), d.Client.Health().Snapshot())
			if !healthy {
				return ErrUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxWait, "timeout", time.Minute, "how long to keep polling")
	return cmd
}

func renderHealth(w io.Writer, baseURL string, s health.Status) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"API", "Healthy", "Last Checked"})

	checked := "never"
	if !s.LastChecked.IsZero() {
		checked = s.LastChecked.Format(time.RFC3339)
	}
	t.AppendRow(table.Row{baseURL, s.Healthy, checked})
	t.Render()
}
