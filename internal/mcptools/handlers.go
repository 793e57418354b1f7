package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/bizdoc/internal/classify"
	"github.com/dusk-indust/bizdoc/internal/export"
	"github.com/dusk-indust/bizdoc/internal/knowledge"
	"github.com/dusk-indust/bizdoc/internal/orchestrator"
	"github.com/dusk-indust/bizdoc/internal/runstore"
)

// RunService is the part of *service.Service the tools use.
type RunService interface {
	Start(ctx context.Context, in orchestrator.Input) (*runstore.Run, error)
	RunSync(ctx context.Context, in orchestrator.Input) (*runstore.Run, *orchestrator.Result, error)
	Get(ctx context.Context, id uuid.UUID) (*runstore.Run, error)
	Events(ctx context.Context, id uuid.UUID, from int) ([]runstore.Event, error)
}

// DocumentService handles MCP tool calls.
type DocumentService struct {
	runs RunService
}

func NewDocumentService(runs RunService) *DocumentService {
	return &DocumentService{runs: runs}
}

// GenerateDocument runs a generation. Input errors are returned as tool
// errors; a run that fails is reported with status "failed" and the error
// message so the caller can retry, for example in single-pass mode.
func (s *DocumentService) GenerateDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateDocumentInput,
) (*mcp.CallToolResult, GenerateDocumentOutput, error) {
	in := toInput(input)

	if input.Async {
		run, err := s.runs.Start(ctx, in)
		if err != nil {
			return nil, GenerateDocumentOutput{}, err
		}
		return nil, GenerateDocumentOutput{
			RunID:  run.ID.String(),
			Status: string(run.Status),
			Mode:   string(run.Mode),
		}, nil
	}

	run, res, err := s.runs.RunSync(ctx, in)
	if run == nil {
		return nil, GenerateDocumentOutput{}, err
	}
	out := GenerateDocumentOutput{
		RunID:  run.ID.String(),
		Status: string(run.Status),
		Mode:   string(run.Mode),
	}
	if err != nil {
		out.Status = string(runstore.StatusFailed)
		out.Message = err.Error()
		return nil, out, nil
	}

	out.Module = res.Metadata.PrimaryModule
	out.Mode = string(res.Metadata.Mode)
	out.Document = export.Markdown(res, orchestrator.DocumentPlan)
	out.Warnings = res.Warnings
	return nil, out, nil
}

// GetRun reports a run's status, its progress so far, and its document once
// complete.
func (s *DocumentService) GetRun(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetRunInput,
) (*mcp.CallToolResult, GetRunOutput, error) {
	id, err := uuid.Parse(strings.TrimSpace(input.RunID))
	if err != nil {
		return nil, GetRunOutput{}, fmt.Errorf("invalid run id %q", input.RunID)
	}

	run, err := s.runs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, runstore.ErrNotFound) {
			return nil, GetRunOutput{}, fmt.Errorf("run %s not found", id)
		}
		return nil, GetRunOutput{}, fmt.Errorf("get run: %w", err)
	}

	out := GetRunOutput{
		RunID:   run.ID.String(),
		Status:  string(run.Status),
		Message: run.Error,
	}
	if run.Phase != 0 {
		out.Phase = run.Phase.String()
	}

	events, err := s.runs.Events(ctx, id, 0)
	if err != nil {
		return nil, GetRunOutput{}, fmt.Errorf("get run events: %w", err)
	}
	for _, ev := range events {
		out.Progress = append(out.Progress, orchestrator.FormatProgress(ev.ProgressEvent))
	}

	if run.Result != nil {
		out.Document = export.Markdown(run.Result, orchestrator.DocumentPlan)
		out.Warnings = run.Result.Warnings
	}
	return nil, out, nil
}

// ClassifyText ranks the SAP modules that match a description.
func (s *DocumentService) ClassifyText(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ClassifyTextInput,
) (*mcp.CallToolResult, ClassifyTextOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, ClassifyTextOutput{}, errors.New("text is required")
	}

	primary, ranked := classify.Keyword{}.Classify(input.Text, input.ModuleHint)
	out := ClassifyTextOutput{Primary: primary, Candidates: ranked}
	if out.Candidates == nil {
		out.Candidates = []classify.Candidate{}
	}
	if mod, ok := knowledge.Lookup(primary); ok {
		out.ModuleName = mod.Name
	}
	return nil, out, nil
}
