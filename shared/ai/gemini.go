package ai

import (
	"context"
	"fmt"
	"strings"

	"persona-stack/shared/config"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type GeminiClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiClient(ctx context.Context, cfg *config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  cfg.Model,
		logger: logger.Named("gemini"),
	}, nil
}

func (g *GeminiClient) Model() string {
	return g.model
}

func (g *GeminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		genConfig.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(req.Prompt)}, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, genConfig)
	if err != nil {
		llmErr := ClassifyError(err)
		llmErr.Model = g.model
		return nil, llmErr
	}

	responseText := result.Text()
	if strings.TrimSpace(responseText) == "" {
		// Empty text usually means the candidate was blocked by content filtering.
		return nil, NewError(ErrorTypeResponse, "empty response from model", true, nil)
	}

	resp := &Response{
		Content: responseText,
		Model:   g.model,
	}
	if result.ModelVersion != "" {
		resp.Model = result.ModelVersion
	}
	if usage := result.UsageMetadata; usage != nil {
		resp.PromptTokens = int(usage.PromptTokenCount)
		resp.CompletionTokens = int(usage.CandidatesTokenCount)
		resp.TotalTokens = int(usage.TotalTokenCount)
	}

	g.logger.Debug("LLM request completed",
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.TotalTokens))

	return resp, nil
}
