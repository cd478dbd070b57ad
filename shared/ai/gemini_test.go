package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"persona-stack/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGeminiClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"a\":1}"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 3, "totalTokenCount": 10},
			"modelVersion": "gemini-test-001"
		}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient(context.Background(), &config.LLMConfig{
		APIKey:  "g-key",
		BaseURL: srv.URL + "/",
		Model:   "gemini-test",
	}, zap.NewNop())
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), Request{System: "s", Prompt: "p", Temperature: 0.2, MaxTokens: 100, JSON: true})
	require.NoError(t, err)

	assert.Equal(t, `{"a":1}`, resp.Content)
	assert.Equal(t, "gemini-test-001", resp.Model)
	assert.Equal(t, 10, resp.TotalTokens)
	assert.Equal(t, 3, resp.CompletionTokens)
}
