package main

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/bizdoc/internal/api"
	"github.com/dusk-indust/bizdoc/internal/orchestrator"
	"github.com/dusk-indust/bizdoc/internal/runstore"
)

func newStatusCmd(a *app) *cobra.Command {
	var (
		server string
		follow bool
		wait   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show the status of a run on a bizdoc server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			if server == "" {
				server = "http://" + a.cfg.Server.Addr()
			}
			client := api.NewClient(server)
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch {
			case follow:
				events, err := client.Subscribe(ctx, id)
				if err != nil {
					return err
				}
				for ev := range events {
					switch {
					case ev.Err != nil:
						return ev.Err
					case ev.Event != nil:
						fmt.Fprintln(out, orchestrator.FormatProgress(ev.Event.ProgressEvent))
					case ev.Run != nil:
						printRun(out, ev.Run)
					}
				}
				return nil
			case wait > 0:
				run, err := client.WaitForRun(ctx, id, wait)
				if err != nil {
					return err
				}
				printRun(out, run)
				return nil
			default:
				run, err := client.GetRun(ctx, id)
				if err != nil {
					return err
				}
				printRun(out, run)
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "server base URL (default http://<server.host>:<server.port>)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream progress until the run finishes")
	cmd.Flags().DurationVar(&wait, "wait", 0, "poll at this interval until the run finishes")
	return cmd
}

func printRun(w io.Writer, run *runstore.Run) {
	fmt.Fprintf(w, "Run:     %s\n", run.ID)
	fmt.Fprintf(w, "Status:  %s\n", run.Status)
	fmt.Fprintf(w, "Mode:    %s\n", run.Mode)
	if run.Phase != 0 {
		fmt.Fprintf(w, "Phase:   %s\n", run.Phase)
	}
	fmt.Fprintf(w, "Input:   %s\n", run.Summary)
	fmt.Fprintf(w, "Updated: %s\n", run.UpdatedAt.Format(time.RFC3339))
	if run.Error != "" {
		fmt.Fprintf(w, "Error:   %s\n", run.Error)
	}
	if run.Result != nil {
		fmt.Fprintf(w, "Module:  %s\n", run.Result.Metadata.PrimaryModule)
		for _, warn := range run.Result.Warnings {
			fmt.Fprintf(w, "Warning: %s\n", warn)
		}
	}
}
