package orchestrator

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

const directorReply = "```json\n" + `{
  "terminology": {"supplier": "vendor", "PO": "purchase order"},
  "processSteps": ["Create purchase requisition", "Convert to purchase order", "Post goods receipt"],
  "decisions": ["Three-way match is mandatory"]
}` + "\n```"

const reviewReply = `## process-design
corrected process-design

## solution-design
corrected solution-design

## testing-strategy
not a reviewed section, must be ignored
`

var sectionRe = regexp.MustCompile(`Write the "([a-z-]+)" section`)

// taskKey identifies which role a rendered prompt belongs to.
func taskKey(prompt string) string {
	switch {
	case strings.Contains(prompt, "shared brief"):
		return "director"
	case strings.Contains(prompt, "consistency reviewer"):
		return "review"
	case strings.Contains(prompt, "complete design document"):
		return "single-pass"
	}
	if m := sectionRe.FindStringSubmatch(prompt); m != nil {
		return m[1]
	}
	return "unknown"
}

// scriptedGenerator answers each role with a configurable handler and
// counts calls per role.
type scriptedGenerator struct {
	mu       sync.Mutex
	handlers map[string]func(ctx context.Context) (string, error)
	calls    map[string]int
}

func newScripted() *scriptedGenerator {
	g := &scriptedGenerator{
		handlers: make(map[string]func(ctx context.Context) (string, error)),
		calls:    make(map[string]int),
	}
	g.reply("director", directorReply)
	g.reply("review", reviewReply)
	g.reply(SectionChangeManagement, "change plan")
	for _, r := range DefaultSpecialists {
		g.reply(r.SectionID, "raw "+r.SectionID)
	}
	return g
}

func (g *scriptedGenerator) on(key string, fn func(ctx context.Context) (string, error)) *scriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers[key] = fn
	return g
}

func (g *scriptedGenerator) reply(key, text string) *scriptedGenerator {
	return g.on(key, func(context.Context) (string, error) { return text, nil })
}

func (g *scriptedGenerator) fail(key, msg string) *scriptedGenerator {
	return g.on(key, func(context.Context) (string, error) { return "", errors.New(msg) })
}

// block makes key wait for ctx cancellation.
func (g *scriptedGenerator) block(key string) *scriptedGenerator {
	return g.on(key, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
}

func (g *scriptedGenerator) callCount(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[key]
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, _ int) (string, error) {
	key := taskKey(prompt)
	g.mu.Lock()
	g.calls[key]++
	h, ok := g.handlers[key]
	g.mu.Unlock()
	if !ok {
		return "", errors.New("no handler for " + key)
	}
	return h(ctx)
}

// recorder is a ProgressSink that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recorder) Emit(ev ProgressEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) all() []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ProgressEvent, len(r.events))
	copy(out, r.events)
	return out
}

// taskSequences returns the recorded status sequence of every task.
func (r *recorder) taskSequences() map[string][]ProgressStatus {
	seqs := make(map[string][]ProgressStatus)
	for _, ev := range r.all() {
		if status, ok := ev.TaskStatus(); ok {
			seqs[ev.Task] = append(seqs[ev.Task], status)
		}
	}
	return seqs
}

// phaseEvents returns the phase-level events for phase.
func (r *recorder) phaseEvents(phase Phase) []ProgressEvent {
	var out []ProgressEvent
	for _, ev := range r.all() {
		if ev.Phase == phase && ev.Task == "" {
			out = append(out, ev)
		}
	}
	return out
}

// firstIndex returns the index of the first event matching fn, or -1.
func (r *recorder) firstIndex(fn func(ProgressEvent) bool) int {
	for i, ev := range r.all() {
		if fn(ev) {
			return i
		}
	}
	return -1
}

func (r *recorder) lastIndex(fn func(ProgressEvent) bool) int {
	events := r.all()
	for i := len(events) - 1; i >= 0; i-- {
		if fn(events[i]) {
			return i
		}
	}
	return -1
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Budgets = Budgets{
		Director:    200 * time.Millisecond,
		Specialists: 200 * time.Millisecond,
		Finalize:    200 * time.Millisecond,
		Caller:      time.Second,
	}
	return cfg
}

func testInput() Input {
	return Input{
		Text:       "Vendors send invoices that are matched against purchase orders and goods receipts.",
		ModuleHint: "MM",
		Language:   "English",
	}
}

func newPipeline(t *testing.T, cfg Config, gen *scriptedGenerator, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg, gen, opts...)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func runPipeline(t *testing.T, cfg Config, gen *scriptedGenerator) (*Result, *recorder, error) {
	t.Helper()
	rec := &recorder{}
	res, err := newPipeline(t, cfg, gen).Run(context.Background(), testInput(), rec)
	return res, rec, err
}
