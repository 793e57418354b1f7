package mcptools

import (
	"github.com/dusk-indust/bizdoc/internal/classify"
	"github.com/dusk-indust/bizdoc/internal/orchestrator"
)

// GenerateDocumentInput is the input for the generate_document MCP tool.
type GenerateDocumentInput struct {
	Text         string `json:"text" jsonschema:"business process description to turn into a design document"`
	ModuleHint   string `json:"moduleHint,omitempty" jsonschema:"SAP module id to use instead of automatic classification (e.g. MM, SD)"`
	Language     string `json:"language,omitempty" jsonschema:"output language (default English)"`
	Depth        string `json:"depth,omitempty" jsonschema:"level of detail: overview, standard or detailed"`
	DocumentType string `json:"documentType,omitempty" jsonschema:"kind of document, e.g. blueprint or functional specification"`
	Guidance     string `json:"guidance,omitempty" jsonschema:"additional instructions for the authors"`
	Mode         string `json:"mode,omitempty" jsonschema:"auto, pipeline or single-pass (default auto)"`
	Async        bool   `json:"async,omitempty" jsonschema:"return a run id immediately instead of waiting for the document"`
}

// GenerateDocumentOutput is the result of the generate_document MCP tool.
type GenerateDocumentOutput struct {
	RunID    string   `json:"runId"`
	Status   string   `json:"status"`
	Module   string   `json:"module,omitempty"`
	Mode     string   `json:"mode,omitempty"`
	Document string   `json:"document,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// GetRunInput is the input for the get_run MCP tool.
type GetRunInput struct {
	RunID string `json:"runId" jsonschema:"run id returned by generate_document"`
}

// GetRunOutput is the result of the get_run MCP tool.
type GetRunOutput struct {
	RunID    string   `json:"runId"`
	Status   string   `json:"status"`
	Phase    string   `json:"phase,omitempty"`
	Progress []string `json:"progress,omitempty"`
	Document string   `json:"document,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// ClassifyTextInput is the input for the classify_text MCP tool.
type ClassifyTextInput struct {
	Text       string `json:"text" jsonschema:"business process description"`
	ModuleHint string `json:"moduleHint,omitempty" jsonschema:"module id that overrides the ranking when known"`
}

// ClassifyTextOutput is the result of the classify_text MCP tool.
type ClassifyTextOutput struct {
	Primary    string               `json:"primary"`
	ModuleName string               `json:"moduleName,omitempty"`
	Candidates []classify.Candidate `json:"candidates"`
}

func toInput(in GenerateDocumentInput) orchestrator.Input {
	return orchestrator.Input{
		Text:         in.Text,
		ModuleHint:   in.ModuleHint,
		Language:     in.Language,
		Depth:        in.Depth,
		DocumentType: in.DocumentType,
		Guidance:     in.Guidance,
		Mode:         orchestrator.Mode(in.Mode),
	}
}
