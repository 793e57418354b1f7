package orchestrator

import (
	"bufio"
	"regexp"
	"sort"
	"strings"
)

// MergeStrategy defines how section layers are combined.
type MergeStrategy string

const (
	// MergeOverlay lets each later layer replace sections of earlier ones.
	MergeOverlay MergeStrategy = "overlay"
)

// MergePlan describes how to combine and order sections.
type MergePlan struct {
	Strategy     MergeStrategy
	SectionOrder []string // section ids in document order
}

// CoherenceIssue is a contradiction found during post-merge validation.
type CoherenceIssue struct {
	Kind        string `json:"kind"`               // "terminology" or "version"
	SectionA    string `json:"sectionA"`           // first section involved
	SectionB    string `json:"sectionB,omitempty"` // second section, for conflicts
	Description string `json:"description"`
}

// Merger combines section layers according to a MergePlan.
type Merger struct {
	plan MergePlan
}

// NewMerger creates a Merger with the given merge plan.
func NewMerger(plan MergePlan) *Merger {
	return &Merger{plan: plan}
}

// Combine overlays layers in order: a section in a later layer replaces the
// same id from an earlier one. Sections whose text is blank are dropped, and
// a blank section never hides a non-blank one beneath it.
func (m *Merger) Combine(layers ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, layer := range layers {
		for id, text := range layer {
			if text = strings.TrimSpace(text); text != "" {
				out[id] = text
			}
		}
	}
	return out
}

// Order returns sections in plan order, then any ids the plan does not name,
// sorted. Absent plan ids are skipped.
func (m *Merger) Order(sections map[string]string) []Section {
	out := make([]Section, 0, len(sections))
	planned := make(map[string]bool, len(m.plan.SectionOrder))
	for _, id := range m.plan.SectionOrder {
		planned[id] = true
		if text, ok := sections[id]; ok {
			out = append(out, Section{ID: id, Text: text})
		}
	}

	var extras []string
	for id := range sections {
		if !planned[id] {
			extras = append(extras, id)
		}
	}
	sort.Strings(extras)
	for _, id := range extras {
		out = append(out, Section{ID: id, Text: sections[id]})
	}
	return out
}

var headingRe = regexp.MustCompile(`^##\s+(.+?)\s*#*\s*$`)

// splitSections cuts generated markdown into sections at "## <id>" headings.
// Text before the first heading is dropped. When allowed is non-nil only
// those ids start a section; any other "##" line is body text of the
// current section. Ids are compared case-insensitively and may be wrapped
// in backticks or angle brackets.
func splitSections(text string, allowed map[string]bool) map[string]string {
	out := make(map[string]string)
	var (
		current string
		body    strings.Builder
	)
	flush := func() {
		if current != "" {
			if t := strings.TrimSpace(body.String()); t != "" {
				out[current] = t
			}
		}
		body.Reset()
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if m := headingRe.FindStringSubmatch(line); m != nil {
			id := strings.ToLower(strings.Trim(m[1], "`<> "))
			if allowed == nil || allowed[id] {
				flush()
				current = id
				continue
			}
		}
		if current != "" {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	flush()
	return out
}
