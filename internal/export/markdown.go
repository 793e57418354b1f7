package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/bizdoc/internal/orchestrator"
)

// Placeholder stands in for a planned section the run did not produce.
const Placeholder = "_This section was not generated._"

var titles = map[string]string{
	orchestrator.SectionProcessAreas:     "Process Areas",
	orchestrator.SectionProcessDesign:    "Process Design",
	orchestrator.SectionSolutionDesign:   "Solution Design",
	orchestrator.SectionConfiguration:    "Configuration",
	orchestrator.SectionTestingStrategy:  "Testing Strategy",
	orchestrator.SectionChangeManagement: "Change Management",
	orchestrator.SectionReferenceObjects: "Reference Objects",
	orchestrator.SectionDocument:         "Document",
}

// Title returns the display title for a section id. Unknown ids are title
// cased from their dash-separated words.
func Title(id string) string {
	if t, ok := titles[id]; ok {
		return t
	}
	words := strings.Fields(strings.ReplaceAll(id, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// sectionIDs returns every planned id followed by any unplanned ids present
// in the result, sorted.
func sectionIDs(res *orchestrator.Result, plan orchestrator.MergePlan) []string {
	ids := make([]string, 0, len(plan.SectionOrder)+len(res.Sections))
	planned := make(map[string]bool, len(plan.SectionOrder))
	for _, id := range plan.SectionOrder {
		planned[id] = true
		ids = append(ids, id)
	}
	var extras []string
	for id := range res.Sections {
		if !planned[id] {
			extras = append(extras, id)
		}
	}
	sort.Strings(extras)
	return append(ids, extras...)
}

// Markdown renders res as a single markdown document in plan order.
// Warnings, when present, are listed before the first section.
func Markdown(res *orchestrator.Result, plan orchestrator.MergePlan) string {
	var sb strings.Builder

	title := "Design Document"
	if md := res.Metadata; md.ModuleName != "" {
		title = fmt.Sprintf("%s Design Document (%s)", md.ModuleName, md.PrimaryModule)
	} else if md.PrimaryModule != "" {
		title = fmt.Sprintf("Design Document (%s)", md.PrimaryModule)
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	if len(res.Warnings) > 0 {
		sb.WriteString("> **Warnings**\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&sb, "> - %s\n", w)
		}
		sb.WriteString("\n")
	}

	for _, id := range sectionIDs(res, plan) {
		fmt.Fprintf(&sb, "## %s\n\n", Title(id))
		text, ok := res.Sections[id]
		if !ok {
			text = Placeholder
		}
		sb.WriteString(strings.TrimSpace(text))
		sb.WriteString("\n\n")
	}

	if refs := res.Metadata.CrossReferences; len(refs) > 0 {
		sb.WriteString("---\n\nRelated modules: ")
		sb.WriteString(strings.Join(refs, ", "))
		sb.WriteString("\n")
	}
	return sb.String()
}
