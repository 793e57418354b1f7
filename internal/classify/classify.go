// Package classify ranks SAP modules by keyword overlap with free text.
package classify

import (
	"sort"
	"strings"

	"github.com/dusk-indust/bizdoc/internal/knowledge"
)

// General is the module id used when nothing in the text matches.
const General = "GENERAL"

// Candidate is one ranked module.
type Candidate struct {
	Module string `json:"module"`
	Score  int    `json:"score"`
}

// Rank scores every known module by how often its keywords occur in text.
// Modules with a zero score are left out. Order is score descending, then
// module id ascending.
func Rank(text string) []Candidate {
	lower := strings.ToLower(text)
	var out []Candidate
	for _, m := range knowledge.Modules() {
		score := 0
		for _, kw := range m.Keywords {
			score += strings.Count(lower, kw)
		}
		if strings.Contains(text, m.ID+" ") || strings.HasSuffix(text, m.ID) {
			score += 2
		}
		if score > 0 {
			out = append(out, Candidate{Module: m.ID, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Module < out[j].Module
	})
	return out
}

// Primary picks the module a document is about. A hint naming a known
// module wins; otherwise the top-ranked candidate; otherwise General.
func Primary(text, hint string) string {
	if m, ok := knowledge.Lookup(hint); ok {
		return m.ID
	}
	if ranked := Rank(text); len(ranked) > 0 {
		return ranked[0].Module
	}
	return General
}

// Keyword is the default classifier used by the pipeline.
type Keyword struct{}

// Classify returns the primary module and the full ranking.
func (Keyword) Classify(text, hint string) (string, []Candidate) {
	return Primary(text, hint), Rank(text)
}
