package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dusk-indust/bizdoc/internal/prompts"
)

// SharedContext is the director's output. It is read by every later phase
// and never modified after construction; accessors return copies.
type SharedContext struct {
	terminology map[string]string
	steps       []string
	decisions   []string
}

// NewSharedContext copies its arguments. At least one process step is
// required.
func NewSharedContext(terminology map[string]string, steps, decisions []string) (*SharedContext, error) {
	sc := &SharedContext{terminology: make(map[string]string, len(terminology))}
	for k, v := range terminology {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			sc.terminology[k] = v
		}
	}
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			sc.steps = append(sc.steps, s)
		}
	}
	for _, d := range decisions {
		if d = strings.TrimSpace(d); d != "" {
			sc.decisions = append(sc.decisions, d)
		}
	}
	if len(sc.steps) == 0 {
		return nil, errors.New("shared context has no process steps")
	}
	return sc, nil
}

type sharedContextJSON struct {
	Terminology  map[string]string `json:"terminology"`
	ProcessSteps []string          `json:"processSteps"`
	Decisions    []string          `json:"decisions"`
}

// ParseSharedContext decodes the director's JSON reply. Markdown code fences
// and prose around the object are ignored. Decoding starts at each "{" in
// turn and stops after the first complete value, so braces in surrounding
// prose do not break it.
func ParseSharedContext(raw string) (*SharedContext, error) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return nil, errors.New("director reply contains no JSON object")
	}

	var firstErr error
	for start >= 0 {
		var doc sharedContextJSON
		err := json.NewDecoder(strings.NewReader(raw[start:])).Decode(&doc)
		if err == nil {
			return NewSharedContext(doc.Terminology, doc.ProcessSteps, doc.Decisions)
		}
		if firstErr == nil {
			firstErr = err
		}
		next := strings.Index(raw[start+1:], "{")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, fmt.Errorf("decode director reply: %w", firstErr)
}

func (sc *SharedContext) Terminology() map[string]string { return maps.Clone(sc.terminology) }
func (sc *SharedContext) ProcessSteps() []string         { return slices.Clone(sc.steps) }
func (sc *SharedContext) Decisions() []string            { return slices.Clone(sc.decisions) }

func (sc *SharedContext) view() prompts.ContextView {
	return prompts.ContextView{
		Terminology:  sc.Terminology(),
		ProcessSteps: sc.ProcessSteps(),
		Decisions:    sc.Decisions(),
	}
}
