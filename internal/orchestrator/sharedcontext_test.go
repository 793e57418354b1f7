package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSharedContext(t *testing.T) {
	sc, err := ParseSharedContext(directorReply)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"supplier": "vendor", "PO": "purchase order"}, sc.Terminology())
	assert.Equal(t, []string{"Create purchase requisition", "Convert to purchase order", "Post goods receipt"}, sc.ProcessSteps())
	assert.Equal(t, []string{"Three-way match is mandatory"}, sc.Decisions())
}

func TestParseSharedContext_BracesAroundObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"trailing prose", directorReply + "\nNote: placeholders such as {plant} are left for the specialists."},
		{"leading prose", "Fill in {company code} later.\n" + directorReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := ParseSharedContext(tt.raw)
			require.NoError(t, err)
			assert.Len(t, sc.ProcessSteps(), 3)
			assert.Equal(t, "vendor", sc.Terminology()["supplier"])
		})
	}
}

func TestParseSharedContext_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"no object", "I cannot help with that.", "no JSON object"},
		{"bad json", `{"terminology": [}`, "decode director reply"},
		{"only prose braces", "Use {plant} and {company code}.", "decode director reply"},
		{"no steps", `{"terminology": {"a": "b"}, "processSteps": ["  "]}`, "no process steps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSharedContext(tt.raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSharedContext_AccessorsReturnCopies(t *testing.T) {
	sc, err := NewSharedContext(map[string]string{"GR": "goods receipt", " ": "dropped"}, []string{"a", "", "b"}, nil)
	require.NoError(t, err)

	terms := sc.Terminology()
	terms["GR"] = "changed"
	steps := sc.ProcessSteps()
	steps[0] = "changed"

	assert.Equal(t, map[string]string{"GR": "goods receipt"}, sc.Terminology())
	assert.Equal(t, []string{"a", "b"}, sc.ProcessSteps())
	assert.Empty(t, sc.Decisions())
}

func TestSharedContext_View(t *testing.T) {
	sc, err := NewSharedContext(nil, []string{"step"}, []string{"decision"})
	require.NoError(t, err)

	v := sc.view()
	assert.Equal(t, []string{"step"}, v.ProcessSteps)
	assert.Equal(t, []string{"decision"}, v.Decisions)
}
