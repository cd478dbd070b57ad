// Package persona turns the analyses of one source into buyer personas.
package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"persona-stack/agents/persona-research/sampler"
	"persona-stack/internal/models"
	"persona-stack/shared/ai"
	"persona-stack/shared/config"
	"persona-stack/shared/storage"

	"go.uber.org/zap"
)

const (
	MinPersonas = 1
	MaxPersonas = 10
)

// ErrEmptyInput is returned when a source has no analyses yet.
var ErrEmptyInput = errors.New("no analyses available to generate personas")

type Store interface {
	GetSource(ctx context.Context, ref models.SourceRef) (models.Source, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListAnalyses(ctx context.Context, ref models.SourceRef) ([]*models.AnalysisRecord, error)
	ReplacePersonas(ctx context.Context, ref models.SourceRef, personas []*models.BuyerPersona, itemsAnalyzed int) error
}

type Generator struct {
	store     Store
	client    ai.Client
	llm       config.LLMConfig
	sampleCap int
	logger    *zap.Logger
}

func New(store Store, client ai.Client, cfg *config.Config, logger *zap.Logger) *Generator {
	return &Generator{
		store:     store,
		client:    client,
		llm:       cfg.LLM,
		sampleCap: cfg.Pipeline.SampleCap,
		logger:    logger.Named("persona"),
	}
}

type Result struct {
	Personas      []*models.BuyerPersona
	Sampled       int
	ItemsAnalyzed int
	TokensUsed    int
}

// Generate asks the model for n personas and replaces the source's current
// set. Nothing is written unless the whole set parses.
func (g *Generator) Generate(ctx context.Context, ref models.SourceRef, n int) (*Result, error) {
	if n < MinPersonas || n > MaxPersonas {
		return nil, fmt.Errorf("persona count must be between %d and %d, got %d", MinPersonas, MaxPersonas, n)
	}

	source, err := g.store.GetSource(ctx, ref)
	if err != nil {
		return nil, err
	}

	analyses, err := g.store.ListAnalyses(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(analyses) == 0 {
		return nil, ErrEmptyInput
	}

	var product *models.Product
	if id := source.LinkedProduct(); id != nil {
		product, err = g.store.GetProduct(ctx, *id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	sample := sampler.Sample(analyses, g.sampleCap)
	summary := sampler.Summarize(sampler.Essentials(sample))

	resp, err := g.client.Complete(ctx, ai.Request{
		System:      systemPrompt,
		Prompt:      buildPrompt(source, product, len(sample), summary, n),
		Temperature: g.llm.GenerateTemperature,
		MaxTokens:   g.llm.GenerateMaxTokens,
		Timeout:     g.llm.GenerateTimeout,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate personas for %s: %w", ref, err)
	}

	personas, err := ParsePersonas(resp.Content)
	if err != nil {
		return nil, err
	}
	if len(personas) != n {
		g.logger.Warn("Model returned a different number of personas",
			zap.Stringer("source", ref), zap.Int("requested", n), zap.Int("received", len(personas)))
	}

	if err := g.store.ReplacePersonas(ctx, ref, personas, len(analyses)); err != nil {
		return nil, err
	}

	g.logger.Info("Generated personas",
		zap.Stringer("source", ref),
		zap.Int("personas", len(personas)),
		zap.Int("sampled", len(sample)),
		zap.Int("analyses", len(analyses)),
		zap.Int("tokens", resp.TotalTokens))

	return &Result{
		Personas:      personas,
		Sampled:       len(sample),
		ItemsAnalyzed: len(analyses),
		TokensUsed:    resp.TotalTokens,
	}, nil
}

const systemPrompt = "You are an expert in marketing and buyer persona analysis. " +
	"Your job is to find patterns in the data and build detailed, actionable ideal customer profiles."

func buildPrompt(source models.Source, product *models.Product, sampled int, summary sampler.Summary, n int) string {
	var b strings.Builder

	switch s := source.(type) {
	case *models.Video:
		fmt.Fprintf(&b, "Video: %s\n", s.Title)
		if s.ChannelTitle != "" {
			fmt.Fprintf(&b, "Channel: %s\n", s.ChannelTitle)
		}
		fmt.Fprintf(&b, "Comments analyzed: %d\n", sampled)
	case *models.Survey:
		fmt.Fprintf(&b, "Survey: %s\n", s.Title)
		if s.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", s.Description)
		}
		fmt.Fprintf(&b, "Responses analyzed: %d\n", sampled)
	}

	if product != nil {
		b.WriteString("\nPRODUCT CONTEXT:\n")
		fmt.Fprintf(&b, "Product: %s\n", product.Name)
		for _, f := range []struct{ label, value string }{
			{"Description", product.Description},
			{"Target audience", product.TargetAudience},
			{"Known pain points", product.PainPoints},
			{"Key benefits", product.KeyBenefits},
		} {
			if strings.TrimSpace(f.value) != "" {
				fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
			}
		}
	}

	fmt.Fprintf(&b, "\nANALYSIS SUMMARY:\n%s\n", summary)
	fmt.Fprintf(&b, `TASK: Create %d distinct buyer personas based on these patterns.

INSTRUCTIONS:
1. Look for patterns in motivations, pain points, dreams and objections.
2. Identify clear audience segments with similar behaviors and needs.
3. Create %d unique, well differentiated buyer personas.
4. Estimate the share of the audience each persona represents (percentages must add up to 100).
5. Assign a priority level (high, medium, low) based on relevance and potential.

RESPONSE FORMAT (JSON):
{
  "personas": [
    {
      "name": "Persona name (e.g. Maria the Entrepreneur)",
      "age_range": "Age range (e.g. 25-35)",
      "occupation": "Occupation or role",
      "description": "Short description of who this persona is",
      "motivations": ["motivation 1", "motivation 2", "motivation 3"],
      "pain_points": ["pain 1", "pain 2", "pain 3"],
      "dreams": ["dream 1", "dream 2", "dream 3"],
      "objections": ["objection 1", "objection 2"],
      "preferred_channels": ["channel 1", "channel 2"],
      "behavior": "How this persona consumes content and makes buying decisions",
      "keywords": ["keyword 1", "keyword 2", "keyword 3"],
      "audience_percentage": 40,
      "priority_level": "high",
      "recommended_strategy": "Specific strategy for this segment"
    }
  ]
}

Respond ONLY with the JSON, no extra text.`, n, n)

	return b.String()
}
