package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/bizdoc/internal/export"
	"github.com/dusk-indust/bizdoc/internal/orchestrator"
	"github.com/dusk-indust/bizdoc/internal/runstore"
	"github.com/dusk-indust/bizdoc/internal/service"
)

type generateFlags struct {
	file         string
	out          string
	format       string
	mode         string
	singlePass   bool
	fallback     bool
	module       string
	language     string
	depth        string
	documentType string
	guidance     string
	quiet        bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate [file]",
		Short: "Generate a design document from a description file or stdin",
		Long: `Reads a business process description from the given file, or from stdin
when no file (or "-") is given, and writes the generated design document to
stdout or --out. Progress is printed to stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.file = args[0]
			}
			return a.runGenerate(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", "", "write the document to this file instead of stdout")
	fl.StringVar(&f.format, "format", "markdown", "output format: markdown, json or mermaid")
	fl.StringVar(&f.mode, "mode", "", "generation mode: auto, pipeline or single-pass")
	fl.BoolVar(&f.singlePass, "single-pass", false, "shorthand for --mode single-pass")
	fl.BoolVar(&f.fallback, "fallback", false, "in auto mode, retry in single-pass mode if the pipeline fails")
	fl.StringVar(&f.module, "module", "", "SAP module id to use instead of classification")
	fl.StringVar(&f.language, "language", "", "output language")
	fl.StringVar(&f.depth, "depth", "", "level of detail: overview, standard or detailed")
	fl.StringVar(&f.documentType, "document-type", "", "kind of document, e.g. blueprint")
	fl.StringVar(&f.guidance, "guidance", "", "additional instructions for the authors")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "do not print progress")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, f generateFlags) error {
	render, err := renderer(f.format)
	if err != nil {
		return err
	}

	text, err := readInput(cmd.InOrStdin(), f.file)
	if err != nil {
		return err
	}

	in := orchestrator.Input{
		Text:         text,
		ModuleHint:   f.module,
		Language:     f.language,
		Depth:        f.depth,
		DocumentType: f.documentType,
		Guidance:     f.guidance,
		Mode:         orchestrator.Mode(f.mode),
	}
	if f.singlePass {
		in.Mode = orchestrator.ModeSinglePass
	}
	if f.fallback {
		a.cfg.Pipeline.AutoFallback = true
	}

	ctx := cmd.Context()
	orch, ocfg, err := a.orchestrator(ctx)
	if err != nil {
		return err
	}

	var (
		target orchestrator.Orchestrator = orch
		wait   = func() {}
	)
	if !f.quiet {
		target, wait = withProgress(orch, cmd.ErrOrStderr())
	}

	svc := service.New(target, runstore.NewMemStore(), ocfg.Budgets.Caller, service.WithLogger(a.logger))
	_, res, runErr := svc.RunSync(ctx, in)
	wait()
	if runErr != nil {
		return runErr
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}

	doc, err := render(res)
	if err != nil {
		return err
	}
	if f.out == "" {
		_, err = cmd.OutOrStdout().Write(doc)
		return err
	}
	if err := os.WriteFile(f.out, doc, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", f.out)
	return nil
}

func renderer(format string) (func(*orchestrator.Result) ([]byte, error), error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return func(res *orchestrator.Result) ([]byte, error) {
			return []byte(export.Markdown(res, orchestrator.DocumentPlan)), nil
		}, nil
	case "json":
		return func(res *orchestrator.Result) ([]byte, error) {
			return export.JSON(res, orchestrator.DocumentPlan)
		}, nil
	case "mermaid", "mmd":
		return func(res *orchestrator.Result) ([]byte, error) {
			return []byte(export.Mermaid(res)), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want markdown, json or mermaid)", format)
	}
}

func readInput(stdin io.Reader, file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == "" || file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

// progressOrchestrator forwards every event of a run to a ProgressReporter
// as well as the caller's sink.
type progressOrchestrator struct {
	next     orchestrator.Orchestrator
	reporter *orchestrator.ProgressReporter
}

func (p progressOrchestrator) Run(ctx context.Context, in orchestrator.Input, sink orchestrator.ProgressSink) (*orchestrator.Result, error) {
	defer p.reporter.Close()
	return p.next.Run(ctx, in, orchestrator.SinkFunc(func(ev orchestrator.ProgressEvent) {
		sink.Emit(ev)
		p.reporter.Emit(ev)
	}))
}

// withProgress wraps next so that its progress is printed to w. The
// returned wait function blocks until every line has been written.
func withProgress(next orchestrator.Orchestrator, w io.Writer) (orchestrator.Orchestrator, func()) {
	reporter := orchestrator.NewProgressReporter()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range reporter.Subscribe() {
			fmt.Fprintln(w, orchestrator.FormatProgress(ev))
		}
	}()
	return progressOrchestrator{next: next, reporter: reporter}, func() {
		reporter.Close()
		wg.Wait()
	}
}
