// Package prompts renders the embedded prompt templates for each pipeline
// role.
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template names.
const (
	Director      = "director.tmpl"
	Specialist    = "specialist.tmpl"
	Reviewer      = "reviewer.tmpl"
	Supplementary = "supplementary.tmpl"
	SinglePass    = "single_pass.tmpl"
)

var templates = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{
			"join": strings.Join,
			"inc":  func(i int) int { return i + 1 },
		}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// ContextView is the shared director output as the templates see it.
type ContextView struct {
	Terminology  map[string]string
	ProcessSteps []string
	Decisions    []string
}

// Request carries the caller's input into every template.
type Request struct {
	Text            string
	Module          string
	ModuleName      string
	Language        string
	Depth           string
	DocumentType    string
	Guidance        string
	ProcessAreas    []string
	BusinessObjects []string
}

type DirectorData struct {
	Request
}

type SpecialistData struct {
	Request
	Context   ContextView
	SectionID string
	Role      string
	Focus     string
}

// SectionText is one section handed to the reviewer.
type SectionText struct {
	ID   string
	Text string
}

type ReviewerData struct {
	Request
	Context  ContextView
	Sections []SectionText
}

type SupplementaryData struct {
	Request
	Context   ContextView
	SectionID string
	Focus     string
}

type SinglePassData struct {
	Request
	SectionIDs []string
}

// Render executes the named template with data.
func Render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
