package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/bizdoc/internal/config"
	"github.com/dusk-indust/bizdoc/internal/llm"
	"github.com/dusk-indust/bizdoc/internal/logging"
	"github.com/dusk-indust/bizdoc/internal/orchestrator"
)

// app holds state shared by every subcommand. It is populated by the root
// command's PersistentPreRunE.
type app struct {
	configDir string
	logLevel  string
	logJSON   bool

	cfg    *config.ProjectConfig
	logger *zap.Logger

	newGenerator func(ctx context.Context, cfg config.LLMConfig) (llm.Generator, error)
}

func newApp() *app {
	return &app{newGenerator: llm.NewGenerator}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "bizdoc",
		Short: "Generate SAP design documents from business process descriptions",
		Long: `bizdoc turns a free-text business process description into a structured
SAP design document. A director extracts the process and terminology, four
specialists write their sections in parallel, and a reviewer and a
supplementary author finish the document. If the pipeline fails, generation
can fall back to a single request.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", ".", "directory holding bizdoc.yml and .env")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	root.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "log as JSON")

	root.AddCommand(
		newGenerateCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newStatusCmd(a),
		newClassifyCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = a.logJSON
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// orchestrator builds the mode router from the loaded configuration.
func (a *app) orchestrator(ctx context.Context) (*orchestrator.Router, orchestrator.Config, error) {
	ocfg, err := orchestrator.ConfigFromSettings(a.cfg.Pipeline)
	if err != nil {
		return nil, ocfg, err
	}
	gen, err := a.newGenerator(ctx, a.cfg.LLM)
	if err != nil {
		return nil, ocfg, fmt.Errorf("generation backend: %w", err)
	}
	a.logger.Debug("generation backend ready", zap.String("generator", llm.NameOf(gen)))
	router, err := orchestrator.New(ocfg, gen, orchestrator.WithLogger(a.logger))
	if err != nil {
		return nil, ocfg, err
	}
	return router, ocfg, nil
}
