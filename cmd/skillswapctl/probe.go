package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/skillswap/internal/probe"
)

func newProbeCmd() *cobra.Command {
	var (
		cfg     probe.Config
		filters filterFlags
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Walk every search page of a running server and verify pagination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Filter = filters.values()
			report, err := probe.Run(cmd.Context(), cfg)
			if report != nil {
				out := cmd.OutOrStdout()
				if cfg.Events > 0 {
					fmt.Fprintf(out, "events: submitted=%d accepted=%d duplicate=%d rejected=%d failed=%d\n",
						report.Events.Submitted, report.Events.Accepted, report.Events.Duplicate,
						report.Events.Rejected, report.Events.Failed)
				}
				fmt.Fprintf(out, "skills: %d/%d  listings: %d/%d  requests: %d  took %s\n",
					report.SkillItems, report.SkillTotal, report.ListingItems, report.ListingTotal,
					report.Requests, report.Duration.Round(time.Millisecond))
			}
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	cmd.Flags().IntVar(&cfg.PageSize, "page-size", probe.DefaultPageSize, "page size used for the walk")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", probe.DefaultTimeout, "HTTP request timeout")
	cmd.Flags().IntVar(&cfg.Events, "events", 0, "listing events to submit before walking")
	cmd.Flags().StringSliceVar(&cfg.Skills, "skills", nil, "skill names the generated events refer to")
	cmd.Flags().IntVar(&cfg.Workers, "workers", probe.DefaultWorkers, "concurrent event submitters")
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every fetched page")
	filters.bind(cmd.Flags())
	return cmd
}
