//go:build e2e

package e2e

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const directorReply = "```json\n" + `{
  "terminology": {"supplier": "vendor", "PO": "purchase order", "GR": "goods receipt"},
  "processSteps": [
    "Raise purchase requisition below reorder point",
    "Approve requisitions above 10,000 EUR",
    "Convert requisition to purchase order",
    "Post goods receipt and sample for inspection",
    "Three-way match and release payment"
  ],
  "decisions": ["Plant controller approves requisitions above 10,000 EUR"]
}` + "\n```"

var sectionRe = regexp.MustCompile(`Write the "([a-z-]+)" section`)

// roleOf identifies which role a rendered prompt belongs to.
func roleOf(prompt string) string {
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

// fakeBackend answers every role deterministically. Roles listed in failing
// return an error instead.
type fakeBackend struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   map[string]int
}

func newFakeBackend(failing ...string) *fakeBackend {
	b := &fakeBackend{failing: make(map[string]bool), calls: make(map[string]int)}
	for _, role := range failing {
		b.failing[role] = true
	}
	return b
}

func (b *fakeBackend) Generate(_ context.Context, prompt string, _ int) (string, error) {
	role := roleOf(prompt)
	b.mu.Lock()
	b.calls[role]++
	fail := b.failing[role]
	b.mu.Unlock()
	if fail {
		return "", errors.New(role + ": upstream returned 503")
	}

	switch role {
	case "director":
		return directorReply, nil
	case "review":
		return "## process-design\nBuyers raise requisitions below the reorder point; the plant controller approves those above 10,000 EUR.\n", nil
	case "single-pass":
		return "## process-design\nRequisition to payment in one pass.\n\n## configuration\nRelease strategy by value.\n", nil
	case "unknown":
		return "", errors.New("unrecognized prompt")
	default:
		return "The " + role + " for the procurement process.", nil
	}
}

func (b *fakeBackend) count(role string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[role]
}

func fixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "fixtures", "procurement.txt"))
	require.NoError(t, err)
	return string(data)
}
