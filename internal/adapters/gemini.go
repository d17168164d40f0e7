package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/probeworks/toolhost/internal/config"
	"github.com/probeworks/toolhost/internal/infrastructure"
)

// ErrMissingAPIKey means the Gemini adapter was configured without a key.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// geminiModels maps every supported model to its description.
var geminiModels = map[string]string{
	"gemini-1.5-flash":             "Fast and versatile performance across a diverse variety of tasks",
	"gemini-2.0-flash-lite":        "Cost efficiency and low latency",
	"gemini-2.5-pro-preview-03-25": "Enhanced thinking and reasoning, multimodal understanding",
	"gemini-2.0-flash":             "Fast and efficient model for quick responses",
}

// analysisPrompts maps each analyze_text mode to its instruction.
var analysisPrompts = map[string]string{
	"sentiment":      "Analyze the sentiment of this text and return a label (positive, negative, or neutral) with a confidence score: %s",
	"entities":       "Extract the main entities (people, organizations, locations) from this text: %s",
	"classification": "Classify this text into relevant categories: %s",
}

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateResult is the outcome of a content generation call.
type GenerateResult struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	PromptTokens int    `json:"prompt_tokens"`
}

// AnalyzeResult is the outcome of a text analysis call.
type AnalyzeResult struct {
	AnalysisType string `json:"analysis_type"`
	Result       string `json:"result"`
	TextLength   int    `json:"text_length"`
}

// ChatResult is the outcome of a chat call.
type ChatResult struct {
	Response     string `json:"response"`
	Model        string `json:"model"`
	MessageCount int    `json:"message_count"`
}

// GeminiAdapter is the Gemini AI tool surface.
type GeminiAdapter interface {
	GenerateContent(ctx context.Context, prompt, model string) (*GenerateResult, error)
	ListModels() map[string]string
	AnalyzeText(ctx context.Context, text, analysisType string) (*AnalyzeResult, error)
	Chat(ctx context.Context, messages []ChatMessage, model string) (*ChatResult, error)
}

// DefaultGeminiAdapter talks to the Generative Language REST API.
type DefaultGeminiAdapter struct {
	client       *infrastructure.HTTPClient
	apiKey       string
	baseURL      string
	defaultModel string
}

// NewGeminiAdapter creates a Gemini adapter. Construction fails without
// an API key so a misconfigured host is caught at bootstrap, not on the
// first call.
func NewGeminiAdapter(cfg config.GeminiConfig, client *infrastructure.HTTPClient) (*DefaultGeminiAdapter, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &DefaultGeminiAdapter{
		client:       client,
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		defaultModel: cfg.DefaultModel,
	}, nil
}

// Wire types for the generateContent endpoint.
type geminiRequest struct {
	Contents         []geminiContent       `json:"contents"`
	GenerationConfig geminiGenConfig       `json:"generationConfig"`
	SafetySettings   []geminiSafetySetting `json:"safetySettings"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func defaultGenerationConfig() geminiGenConfig {
	return geminiGenConfig{
		Temperature:     0.7,
		TopP:            0.8,
		TopK:            40,
		MaxOutputTokens: 2048,
	}
}

func defaultSafetySettings() []geminiSafetySetting {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}
	settings := make([]geminiSafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, geminiSafetySetting{Category: c, Threshold: "BLOCK_MEDIUM_AND_ABOVE"})
	}
	return settings
}

// GenerateContent generates text from a single prompt. An empty model
// falls back to the configured default.
func (a *DefaultGeminiAdapter) GenerateContent(ctx context.Context, prompt, model string) (*GenerateResult, error) {
	if model == "" {
		model = a.defaultModel
	}
	if _, ok := geminiModels[model]; !ok {
		return nil, fmt.Errorf("unknown model: %s", model)
	}

	req := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: defaultGenerationConfig(),
		SafetySettings:   defaultSafetySettings(),
	}

	text, err := a.call(ctx, model, req)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	return &GenerateResult{
		Content:      text,
		Model:        model,
		PromptTokens: len(strings.Fields(prompt)),
	}, nil
}

// ListModels returns the supported models and their descriptions.
func (a *DefaultGeminiAdapter) ListModels() map[string]string {
	out := make(map[string]string, len(geminiModels))
	for name, desc := range geminiModels {
		out[name] = desc
	}
	return out
}

// AnalyzeText runs one of the fixed analysis prompts over text.
func (a *DefaultGeminiAdapter) AnalyzeText(ctx context.Context, text, analysisType string) (*AnalyzeResult, error) {
	tmpl, ok := analysisPrompts[analysisType]
	if !ok {
		return nil, fmt.Errorf("invalid analysis type: %s", analysisType)
	}

	req := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: fmt.Sprintf(tmpl, text)}}}},
		GenerationConfig: defaultGenerationConfig(),
		SafetySettings:   defaultSafetySettings(),
	}

	result, err := a.call(ctx, a.defaultModel, req)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	return &AnalyzeResult{
		AnalysisType: analysisType,
		Result:       result,
		TextLength:   len(text),
	}, nil
}

// Chat sends a whole conversation and returns the model's reply to the
// last user turn.
func (a *DefaultGeminiAdapter) Chat(ctx context.Context, messages []ChatMessage, model string) (*ChatResult, error) {
	if model == "" {
		model = a.defaultModel
	}
	if len(messages) == 0 {
		return nil, errors.New("chat requires at least one message")
	}

	contents := make([]geminiContent, 0, len(messages))
	for _, msg := range messages {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	req := geminiRequest{
		Contents:         contents,
		GenerationConfig: defaultGenerationConfig(),
		SafetySettings:   defaultSafetySettings(),
	}

	text, err := a.call(ctx, model, req)
	if err != nil {
		return nil, fmt.Errorf("chat failed: %w", err)
	}
	return &ChatResult{
		Response:     text,
		Model:        model,
		MessageCount: len(messages),
	}, nil
}

func (a *DefaultGeminiAdapter) call(ctx context.Context, model string, req geminiRequest) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		a.baseURL, url.PathEscape(model), url.QueryEscape(a.apiKey))

	var resp geminiResponse
	if err := a.client.PostJSON(ctx, endpoint, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from model")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
