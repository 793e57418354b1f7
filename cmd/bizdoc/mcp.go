package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/bizdoc/internal/mcptools"
	"github.com/dusk-indust/bizdoc/internal/runstore"
	"github.com/dusk-indust/bizdoc/internal/service"
)

func newMCPCmd(a *app) *cobra.Command {
	var httpAddr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server",
		Long: `Exposes generate_document, get_run and classify_text as MCP tools. Uses
stdio by default; --http serves the streamable HTTP transport instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			orch, ocfg, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}

			svc := service.New(orch, runstore.NewMemStore(), ocfg.Budgets.Caller, service.WithLogger(a.logger))
			defer svc.Wait(ctx)

			server := mcptools.NewServer(svc)
			if httpAddr != "" {
				a.logger.Info("starting MCP server", zap.String("transport", "http"), zap.String("addr", httpAddr))
				return mcptools.RunHTTP(ctx, server, httpAddr)
			}
			a.logger.Info("starting MCP server", zap.String("transport", "stdio"))
			return mcptools.RunStdio(ctx, server)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	return cmd
}
