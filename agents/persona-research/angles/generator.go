// Package angles derives persuasive sales angles from a source's most
// relevant analyses and its buyer personas.
package angles

import (
	"context"
	"errors"
	"fmt"

	"persona-stack/internal/models"
	"persona-stack/shared/ai"
	"persona-stack/shared/config"
	"persona-stack/shared/storage"

	"go.uber.org/zap"
)

const (
	DefaultAngles = 10
	MaxAngles     = 20

	// analysesUsed caps how many relevant analyses feed the prompt.
	analysesUsed = 100
)

// ErrNoAnalyses is returned when a source has no relevant analyses.
var ErrNoAnalyses = errors.New("no relevant analyses available to generate sales angles")

type Store interface {
	GetSource(ctx context.Context, ref models.SourceRef) (models.Source, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	FilterAnalyses(ctx context.Context, ref models.SourceRef, f storage.AnalysisFilter) ([]*models.AnalysisRecord, error)
	ListPersonas(ctx context.Context, ref models.SourceRef) ([]*models.BuyerPersona, error)
	ReplaceSalesAngles(ctx context.Context, ref models.SourceRef, angles []*models.SalesAngle) error
}

type Generator struct {
	store  Store
	client ai.Client
	llm    config.LLMConfig
	logger *zap.Logger
}

func New(store Store, client ai.Client, cfg *config.Config, logger *zap.Logger) *Generator {
	return &Generator{
		store:  store,
		client: client,
		llm:    cfg.LLM,
		logger: logger.Named("angles"),
	}
}

type Result struct {
	Angles     []*models.SalesAngle
	Analyses   int
	Personas   int
	TokensUsed int
}

// Generate asks the model for n sales angles and replaces the source's
// current set. A failed call or an unparseable answer leaves it untouched.
func (g *Generator) Generate(ctx context.Context, ref models.SourceRef, n int) (*Result, error) {
	if n < 1 || n > MaxAngles {
		return nil, fmt.Errorf("angle count must be between 1 and %d, got %d", MaxAngles, n)
	}

	source, err := g.store.GetSource(ctx, ref)
	if err != nil {
		return nil, err
	}

	analyses, err := g.store.FilterAnalyses(ctx, ref, storage.AnalysisFilter{OnlyRelevant: true, Limit: analysesUsed})
	if err != nil {
		return nil, err
	}
	if len(analyses) == 0 {
		return nil, ErrNoAnalyses
	}

	personas, err := g.store.ListPersonas(ctx, ref)
	if err != nil {
		return nil, err
	}

	var product *models.Product
	if id := source.LinkedProduct(); id != nil {
		product, err = g.store.GetProduct(ctx, *id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	resp, err := g.client.Complete(ctx, ai.Request{
		System:      systemPrompt,
		Prompt:      buildPrompt(source, product, digest(analyses), personas, n),
		Temperature: g.llm.AngleTemperature,
		MaxTokens:   g.llm.AngleMaxTokens,
		Timeout:     g.llm.GenerateTimeout,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate sales angles for %s: %w", ref, err)
	}

	angles, err := ParseAngles(resp.Content)
	if err != nil {
		return nil, err
	}
	if len(angles) != n {
		g.logger.Warn("Model returned a different number of sales angles",
			zap.Stringer("source", ref), zap.Int("requested", n), zap.Int("received", len(angles)))
	}

	if err := g.store.ReplaceSalesAngles(ctx, ref, angles); err != nil {
		return nil, err
	}

	g.logger.Info("Generated sales angles",
		zap.Stringer("source", ref),
		zap.Int("angles", len(angles)),
		zap.Int("analyses", len(analyses)),
		zap.Int("personas", len(personas)),
		zap.Int("tokens", resp.TotalTokens))

	return &Result{
		Angles:     angles,
		Analyses:   len(analyses),
		Personas:   len(personas),
		TokensUsed: resp.TotalTokens,
	}, nil
}
