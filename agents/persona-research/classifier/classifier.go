// Package classifier labels content items one at a time with a model.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"persona-stack/internal/models"
	"persona-stack/shared/ai"
	"persona-stack/shared/config"
	"persona-stack/shared/storage"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrTextTooShort marks items whose text is at or below the minimum length.
	ErrTextTooShort = errors.New("text too short to analyze")
	// ErrAlreadyAnalyzed marks items that already have an analysis record.
	ErrAlreadyAnalyzed = errors.New("item already analyzed")
)

type Store interface {
	GetSource(ctx context.Context, ref models.SourceRef) (models.Source, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	HasAnalysis(ctx context.Context, contentItemID int64) (bool, error)
	SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error
	ListUnanalyzed(ctx context.Context, ref models.SourceRef, minLength, limit int) ([]*models.ContentItem, error)
	DeleteAnalyses(ctx context.Context, ref models.SourceRef) (int64, error)
	SetAnalyzing(ctx context.Context, ref models.SourceRef, analyzing bool) error
}

type Classifier struct {
	store     Store
	client    ai.Client
	llm       config.LLMConfig
	minLength int
	limiter   *rate.Limiter
	logger    *zap.Logger
}

func New(store Store, client ai.Client, cfg *config.Config, logger *zap.Logger) *Classifier {
	limit := rate.Inf
	if cfg.Pipeline.ClassifyDelay > 0 {
		limit = rate.Every(cfg.Pipeline.ClassifyDelay)
	}
	return &Classifier{
		store:     store,
		client:    client,
		llm:       cfg.LLM,
		minLength: cfg.Pipeline.MinTextLength,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.Named("classifier"),
	}
}

// SetLimiter replaces the limiter spacing model calls.
func (c *Classifier) SetLimiter(l *rate.Limiter) {
	c.limiter = l
}

// Analyze classifies one item and stores the result. product may be nil when
// the item's source is not linked to one.
func (c *Classifier) Analyze(ctx context.Context, item *models.ContentItem, product *models.Product) (*models.AnalysisRecord, error) {
	if item.TextLength() <= c.minLength {
		return nil, ErrTextTooShort
	}

	exists, err := c.store.HasAnalysis(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyAnalyzed
	}

	prompt := buildPrompt(item, product)
	result, tokens, err := c.classify(ctx, prompt)
	if err != nil {
		return nil, err
	}

	// A multi-valued category gets one corrective retry before it is
	// recorded as other.
	if result.multiCategory {
		c.logger.Warn("Model returned several categories, retrying once",
			zap.String("external_id", item.ExternalID),
			zap.String("category", result.rawCategory))

		retry, retryTokens, retryErr := c.classify(ctx, prompt+singleCategoryNote)
		tokens += retryTokens
		switch {
		case retryErr == nil && !retry.multiCategory:
			result = retry
		default:
			if retryErr != nil {
				c.logger.Warn("Category retry failed", zap.String("external_id", item.ExternalID), zap.Error(retryErr))
			}
			result.record.Category = models.CategoryOther
		}
	}

	rec := result.record
	rec.ContentItemID = item.ID
	rec.Source = item.Source
	if rec.Model == "" {
		rec.Model = c.client.Model()
	}
	rec.TokensUsed = tokens

	if err := c.store.SaveAnalysis(ctx, &rec); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrAlreadyAnalyzed
		}
		return nil, err
	}
	return &rec, nil
}

// classify makes one rate-limited model call and parses its answer. The
// token count is returned even when parsing fails.
func (c *Classifier) classify(ctx context.Context, prompt string) (*parsed, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	resp, err := c.client.Complete(ctx, ai.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: c.llm.ClassifyTemperature,
		MaxTokens:   c.llm.ClassifyMaxTokens,
		Timeout:     c.llm.ClassifyTimeout,
		JSON:        true,
	})
	if err != nil {
		return nil, 0, err
	}

	p, err := parseResponse(resp.Content)
	if err != nil {
		return nil, resp.TotalTokens, err
	}
	if resp.Model != "" {
		p.record.Model = resp.Model
	}
	return p, resp.TotalTokens, nil
}

type BatchOptions struct {
	// Limit caps the number of items taken from the queue. Zero means all.
	Limit int
	// Reanalyze deletes the source's analyses before the run.
	Reanalyze  bool
	OnProgress func(done, total int)
}

// AnalyzeBatch classifies the unanalyzed items of one source sequentially.
// Per-item failures are counted and never stop the batch.
func (c *Classifier) AnalyzeBatch(ctx context.Context, ref models.SourceRef, opts BatchOptions) (*models.BatchReport, error) {
	if !ref.Type.Valid() {
		return nil, fmt.Errorf("source type %q: %w", ref.Type, models.ErrInvalidSource)
	}

	source, err := c.store.GetSource(ctx, ref)
	if err != nil {
		return nil, err
	}

	var product *models.Product
	if id := source.LinkedProduct(); id != nil {
		product, err = c.store.GetProduct(ctx, *id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	if err := c.store.SetAnalyzing(ctx, ref, true); err != nil {
		return nil, err
	}
	defer func() {
		if err := c.store.SetAnalyzing(context.WithoutCancel(ctx), ref, false); err != nil {
			c.logger.Error("Failed to clear analyzing flag", zap.Stringer("source", ref), zap.Error(err))
		}
	}()

	if opts.Reanalyze {
		deleted, err := c.store.DeleteAnalyses(ctx, ref)
		if err != nil {
			return nil, err
		}
		c.logger.Info("Deleted previous analyses", zap.Stringer("source", ref), zap.Int64("deleted", deleted))
	}

	items, err := c.store.ListUnanalyzed(ctx, ref, c.minLength, opts.Limit)
	if err != nil {
		return nil, err
	}

	report := &models.BatchReport{Total: len(items)}
	c.logger.Info("Starting analysis batch", zap.Stringer("source", ref), zap.Int("items", report.Total))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		rec, err := c.Analyze(ctx, item, product)
		switch {
		case errors.Is(err, ErrTextTooShort), errors.Is(err, ErrAlreadyAnalyzed):
			report.Skipped++
		case err != nil:
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Errors++
			c.logger.Error("Failed to analyze item",
				zap.Stringer("source", ref),
				zap.Int64("item_id", item.ID),
				zap.String("external_id", item.ExternalID),
				zap.Error(err))
		default:
			report.Analyzed++
			report.Tokens += rec.TokensUsed
		}

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, report.Total)
		}
	}

	c.logger.Info("Analysis batch finished",
		zap.Stringer("source", ref),
		zap.Int("analyzed", report.Analyzed),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", report.Errors),
		zap.Int("tokens", report.Tokens))
	return report, nil
}
