package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"Plain object", `{"a":1}`, `{"a":1}`, false},
		{"Prose around object", "Here you go:\n{\"a\":1}\nThanks", `{"a":1}`, false},
		{"Code fence", "```json\n{\"a\":[1,2]}\n```", `{"a":[1,2]}`, false},
		{"Think tags", "<think>reasoning {x}</think>{\"a\":1}", `{"a":1}`, false},
		{"Braces inside strings", `{"a":"}{","b":2} trailing`, `{"a":"}{","b":2}`, false},
		{"Bare array", `[{"a":1},{"a":2}]`, `[{"a":1},{"a":2}]`, false},
		{"No JSON", "I cannot help with that.", "", true},
		{"Unbalanced", `{"a":1`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"x":1}`, StripCodeFences("```json\n{\"x\":1}\n```"))
	assert.Equal(t, `{"x":1}`, StripCodeFences("```\n{\"x\":1}```"))
	assert.Equal(t, "no fences", StripCodeFences("  no fences \n"))
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Summary string `json:"summary"`
		Score   int    `json:"score"`
	}

	t.Run("Valid", func(t *testing.T) {
		require.NoError(t, DecodeJSON(`{"summary":"ok","score":7}`, &out))
		assert.Equal(t, "ok", out.Summary)
		assert.Equal(t, 7, out.Score)
	})

	t.Run("Sanitizes unescaped quotes", func(t *testing.T) {
		raw := "{\n  \"summary\": \"He said \"buy it\" twice\",\n  \"score\": 3\n}"
		require.NoError(t, DecodeJSON(raw, &out))
		assert.Equal(t, `He said "buy it" twice`, out.Summary)
		assert.Equal(t, 3, out.Score)
	})

	t.Run("Parse error", func(t *testing.T) {
		err := DecodeJSON("nothing here", &out)
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Equal(t, "nothing here", parseErr.Raw)
	})

	t.Run("Wrong shape", func(t *testing.T) {
		err := DecodeJSON(`{"summary": 12}`, &out)
		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr))
	})
}
