package export

import (
	"encoding/json"
	"time"

	"github.com/dusk-indust/bizdoc/internal/orchestrator"
)

// DocumentExport is the top-level JSON export structure.
type DocumentExport struct {
	ExportedAt   string                `json:"exportedAt"`
	Module       string                `json:"module"`
	ModuleName   string                `json:"moduleName,omitempty"`
	Mode         orchestrator.Mode     `json:"mode"`
	Sections     []SectionExport       `json:"sections"`
	Warnings     []string              `json:"warnings"`
	Metadata     orchestrator.Metadata `json:"metadata"`
	ProcessSteps []string              `json:"processSteps,omitempty"`
}

// SectionExport describes one section in document order.
type SectionExport struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Text      string `json:"text,omitempty"`
	Generated bool   `json:"generated"`
}

// now is replaced in tests.
var now = time.Now

// ExportDocument builds a DocumentExport from a run result. Every section the
// plan names is listed; absent ones have Generated=false and no text.
func ExportDocument(res *orchestrator.Result, plan orchestrator.MergePlan) *DocumentExport {
	out := &DocumentExport{
		ExportedAt:   now().UTC().Format(time.RFC3339),
		Module:       res.Metadata.PrimaryModule,
		ModuleName:   res.Metadata.ModuleName,
		Mode:         res.Metadata.Mode,
		Warnings:     res.Warnings,
		Metadata:     res.Metadata,
		ProcessSteps: res.Metadata.ProcessSteps,
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	for _, id := range sectionIDs(res, plan) {
		text, ok := res.Sections[id]
		out.Sections = append(out.Sections, SectionExport{
			ID:        id,
			Title:     Title(id),
			Text:      text,
			Generated: ok,
		})
	}
	return out
}

// JSON renders res as indented JSON.
func JSON(res *orchestrator.Result, plan orchestrator.MergePlan) ([]byte, error) {
	return json.MarshalIndent(ExportDocument(res, plan), "", "  ")
}
