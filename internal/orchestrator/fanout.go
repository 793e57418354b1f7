package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/bizdoc/internal/llm"
)

// GenerationTask is one call to the generation backend.
type GenerationTask struct {
	// Name is the section id the task produces, or a task label for tasks
	// that produce several sections.
	Name      string
	Role      string
	Prompt    string
	MaxTokens int

	// Err, when set, fails the task without calling the backend.
	Err error
}

// TaskOutcome is the settled result of one GenerationTask.
type TaskOutcome struct {
	Name string
	Role string
	Text string
	Err  error
}

// FanOut dispatches GenerationTasks to the backend in parallel. Each branch
// is isolated: a failing task never cancels or fails its siblings, and every
// outcome is reported individually.
type FanOut struct {
	gen        llm.Generator
	label      string
	onProgress func(task string, status ProgressStatus, message string)
}

// NewFanOut creates a FanOut. label prefixes timeout messages (for example
// "specialist"); onProgress is called for each task transition and may be nil.
func NewFanOut(gen llm.Generator, label string, onProgress func(task string, status ProgressStatus, message string)) *FanOut {
	return &FanOut{gen: gen, label: label, onProgress: onProgress}
}

// Run launches every task under its own guard of budget and waits for all of
// them to settle. Outcomes are returned in task order.
func (f *FanOut) Run(ctx context.Context, tasks []GenerationTask, budget time.Duration) []TaskOutcome {
	return f.run(tasks, func(task GenerationTask) (string, error) {
		return Guard(ctx, budget, f.taskLabel(task), f.call(task))
	})
}

// RunShared launches every task under a single deadline of budget shared by
// the whole group.
func (f *FanOut) RunShared(ctx context.Context, tasks []GenerationTask, budget time.Duration) []TaskOutcome {
	gctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return f.run(tasks, func(task GenerationTask) (string, error) {
		return guardWithin(ctx, gctx, budget, f.taskLabel(task), f.call(task))
	})
}

func (f *FanOut) run(tasks []GenerationTask, guarded func(GenerationTask) (string, error)) []TaskOutcome {
	outcomes := make([]TaskOutcome, len(tasks))
	for _, task := range tasks {
		f.emit(task.Name, ProgressPending, "")
	}

	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			f.emit(task.Name, ProgressRunning, "")

			text, err := guarded(task)
			outcomes[i] = TaskOutcome{Name: task.Name, Role: task.Role, Text: text, Err: err}
			if err != nil {
				f.emit(task.Name, ProgressFailed, err.Error())
				return nil
			}
			f.emit(task.Name, ProgressCompleted, "")
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (f *FanOut) call(task GenerationTask) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if task.Err != nil {
			return "", task.Err
		}
		text, err := f.gen.Generate(ctx, task.Prompt, task.MaxTokens)
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", &llm.BackendError{Kind: llm.KindMalformed, Provider: llm.NameOf(f.gen), Message: "empty response"}
		}
		return text, nil
	}
}

func (f *FanOut) taskLabel(task GenerationTask) string {
	if f.label == "" {
		return fmt.Sprintf("task %q", task.Name)
	}
	return fmt.Sprintf("%s %q", f.label, task.Name)
}

// emit reports a transition if a callback is registered.
func (f *FanOut) emit(task string, status ProgressStatus, message string) {
	if f.onProgress != nil {
		f.onProgress(task, status, message)
	}
}
