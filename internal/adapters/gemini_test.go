package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeworks/toolhost/internal/config"
	"github.com/probeworks/toolhost/internal/infrastructure"
)

func geminiTestServer(t *testing.T, reply string, capture *geminiRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"role":  "model",
					"parts": []map[string]string{{"text": reply}},
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestGeminiAdapter(t *testing.T, baseURL string) *DefaultGeminiAdapter {
	t.Helper()
	adapter, err := NewGeminiAdapter(config.GeminiConfig{
		APIKey:       "test-key",
		BaseURL:      baseURL,
		DefaultModel: "gemini-2.0-flash",
	}, infrastructure.NewHTTPClient(0))
	require.NoError(t, err)
	return adapter
}

func TestNewGeminiAdapterRequiresAPIKey(t *testing.T) {
	_, err := NewGeminiAdapter(config.GeminiConfig{}, infrastructure.NewHTTPClient(0))
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGenerateContent(t *testing.T) {
	var captured geminiRequest
	server := geminiTestServer(t, "generated text", &captured)
	defer server.Close()

	adapter := newTestGeminiAdapter(t, server.URL)

	result, err := adapter.GenerateContent(context.Background(), "write a haiku", "")
	require.NoError(t, err)

	assert.Equal(t, "generated text", result.Content)
	assert.Equal(t, "gemini-2.0-flash", result.Model)
	assert.Equal(t, 3, result.PromptTokens)

	// The fixed generation parameters ride along on every request.
	assert.Equal(t, 0.7, captured.GenerationConfig.Temperature)
	assert.Equal(t, 0.8, captured.GenerationConfig.TopP)
	assert.Equal(t, 40, captured.GenerationConfig.TopK)
	assert.Equal(t, 2048, captured.GenerationConfig.MaxOutputTokens)
	assert.Len(t, captured.SafetySettings, 4)
	for _, s := range captured.SafetySettings {
		assert.Equal(t, "BLOCK_MEDIUM_AND_ABOVE", s.Threshold)
	}
}

func TestGenerateContentUnknownModel(t *testing.T) {
	server := geminiTestServer(t, "unused", nil)
	defer server.Close()

	adapter := newTestGeminiAdapter(t, server.URL)

	_, err := adapter.GenerateContent(context.Background(), "hi", "not-a-model")
	assert.ErrorContains(t, err, "unknown model")
}

func TestListModels(t *testing.T) {
	adapter := newTestGeminiAdapter(t, "http://unused")

	models := adapter.ListModels()
	assert.Len(t, models, 4)
	assert.Contains(t, models, "gemini-2.0-flash")
	assert.Contains(t, models, "gemini-1.5-flash")
}

func TestAnalyzeText(t *testing.T) {
	tests := []struct {
		name         string
		analysisType string
		wantErr      string
	}{
		{name: "sentiment", analysisType: "sentiment"},
		{name: "entities", analysisType: "entities"},
		{name: "classification", analysisType: "classification"},
		{name: "invalid type", analysisType: "summarize", wantErr: "invalid analysis type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := geminiTestServer(t, "analysis result", nil)
			defer server.Close()

			adapter := newTestGeminiAdapter(t, server.URL)

			result, err := adapter.AnalyzeText(context.Background(), "some text", tt.analysisType)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.analysisType, result.AnalysisType)
			assert.Equal(t, "analysis result", result.Result)
			assert.Equal(t, len("some text"), result.TextLength)
		})
	}
}

func TestChat(t *testing.T) {
	var captured geminiRequest
	server := geminiTestServer(t, "chat reply", &captured)
	defer server.Close()

	adapter := newTestGeminiAdapter(t, server.URL)

	messages := []ChatMessage{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
		{Role: "user", Content: "how are you"},
	}

	result, err := adapter.Chat(context.Background(), messages, "")
	require.NoError(t, err)

	assert.Equal(t, "chat reply", result.Response)
	assert.Equal(t, 3, result.MessageCount)

	// Assistant turns are translated to the API's "model" role.
	require.Len(t, captured.Contents, 3)
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "model", captured.Contents[1].Role)
}

func TestChatRequiresMessages(t *testing.T) {
	adapter := newTestGeminiAdapter(t, "http://unused")

	_, err := adapter.Chat(context.Background(), nil, "")
	assert.ErrorContains(t, err, "at least one message")
}
