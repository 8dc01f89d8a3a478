package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuestion(t *testing.T) {
	assert.Equal(t, "where is green acres?", NormalizeQuestion("  Where is GREEN Acres?\n"))
	assert.Equal(t, "", NormalizeQuestion("   "))
}

func TestSanitizeHistory(t *testing.T) {
	tests := []struct {
		name    string
		history []Turn
		want    []Turn
	}{
		{"nil", nil, nil},
		{"starts with user", []Turn{{Role: "user", Content: "hi"}}, []Turn{{Role: "user", Content: "hi"}}},
		{
			"leading model turn dropped",
			[]Turn{{Role: "model", Content: "Welcome!"}, {Role: "user", Content: "hi"}},
			[]Turn{{Role: "user", Content: "hi"}},
		},
		{"only model", []Turn{{Role: "model", Content: "Welcome!"}}, []Turn{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeHistory(tt.history)
			assert.Len(t, got, len(tt.want))
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTrimHistory(t *testing.T) {
	history := []Turn{
		{Role: "user", Content: "1"},
		{Role: "model", Content: "2"},
		{Role: "user", Content: "3"},
	}
	assert.Equal(t, history[1:], TrimHistory(history, 2))
	assert.Equal(t, history, TrimHistory(history, 10))
	assert.Equal(t, history, TrimHistory(history, 0))
}

func TestNormalize_TrimsBeforeRepair(t *testing.T) {
	history := []Turn{
		{Role: "user", Content: "1"},
		{Role: "model", Content: "2"},
		{Role: "user", Content: "3"},
	}
	q, got := Normalize(" Hello ", history, 2)
	assert.Equal(t, "hello", q)
	assert.Equal(t, []Turn{{Role: "user", Content: "3"}}, got)
}
