package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/bizdoc/internal/orchestrator"
)

// Mermaid produces a Mermaid flowchart of the result's process steps, one
// node per step in order. A result without steps yields a single
// placeholder node.
func Mermaid(res *orchestrator.Result) string {
	var sb strings.Builder
	sb.WriteString("flowchart TD\n")

	steps := res.Metadata.ProcessSteps
	if len(steps) == 0 {
		sb.WriteString("  N0[\"No process steps\"]\n")
		return sb.String()
	}

	for i, step := range steps {
		sb.WriteString(fmt.Sprintf("  N%d[\"%s\"]\n", i, label(step)))
	}
	for i := 1; i < len(steps); i++ {
		sb.WriteString(fmt.Sprintf("  N%d --> N%d\n", i-1, i))
	}
	return sb.String()
}

// label escapes quotes and truncates long steps for readability.
func label(step string) string {
	step = strings.Join(strings.Fields(step), " ")
	step = strings.ReplaceAll(step, `"`, "#quot;")
	if r := []rune(step); len(r) > 60 {
		step = string(r[:57]) + "..."
	}
	return step
}
