package personaresearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"persona-stack/agents/persona-research/classifier"
	"persona-stack/agents/persona-research/consolidate"
	"persona-stack/internal/models"
	"persona-stack/shared/ai"
	"persona-stack/shared/config"
	"persona-stack/shared/email"
	"persona-stack/shared/scheduler"
	"persona-stack/shared/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunMetrics represents the metrics collected during a scheduled run
type RunMetrics struct {
	SourcesProcessed     int  `json:"sources_processed"`
	SourceErrors         int  `json:"source_errors"`
	ItemsAnalyzed        int  `json:"items_analyzed"`
	ItemErrors           int  `json:"item_errors"`
	TokensUsed           int  `json:"tokens_used"`
	ProductsConsolidated int  `json:"products_consolidated"`
	ConsolidationErrors  int  `json:"consolidation_errors"`
	EmailSent            bool `json:"email_sent"`
}

// GetSummary implements the scheduler.Metrics interface
func (m RunMetrics) GetSummary() string {
	s := fmt.Sprintf("%d items analyzed from %d sources (%d item errors, %d tokens), %d products consolidated",
		m.ItemsAnalyzed, m.SourcesProcessed, m.ItemErrors, m.TokensUsed, m.ProductsConsolidated)
	if m.EmailSent {
		s += ", digest sent"
	}
	return s
}

type Store interface {
	ListSourcesWithPending(ctx context.Context, minLength int) ([]models.SourceRef, error)
	ListStaleProducts(ctx context.Context) ([]*models.Product, error)
	Close() error
}

type Analyzer interface {
	AnalyzeBatch(ctx context.Context, ref models.SourceRef, opts classifier.BatchOptions) (*models.BatchReport, error)
}

type Consolidator interface {
	Consolidate(ctx context.Context, productID int64) (*models.Product, error)
}

type Notifier interface {
	SendDigest(digest *models.ConsolidationDigest) error
}

// Deps lets callers supply ready-made collaborators. Anything left nil is
// built from configuration by Initialize.
type Deps struct {
	Store        Store
	Analyzer     Analyzer
	Consolidator Consolidator
	Notifier     Notifier
}

// PersonaAgent implements the scheduler.Agent interface
type PersonaAgent struct {
	config       *config.Config
	store        Store
	analyzer     Analyzer
	consolidator Consolidator
	notifier     Notifier
	logger       *zap.Logger
}

func NewPersonaAgent(cfg *config.Config, deps Deps, logger *zap.Logger) *PersonaAgent {
	return &PersonaAgent{
		config:       cfg,
		store:        deps.Store,
		analyzer:     deps.Analyzer,
		consolidator: deps.Consolidator,
		notifier:     deps.Notifier,
		logger:       logger.Named("agent"),
	}
}

func (a *PersonaAgent) Name() string {
	return "Persona Research"
}

func (a *PersonaAgent) Initialize(ctx context.Context) error {
	a.logger.Info("Initializing agent", zap.String("agent", a.Name()))

	if a.store == nil {
		s, err := storage.Open(a.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		a.store = s
		a.logger.Info("Database opened", zap.String("driver", a.config.Database.Driver))
	}

	store, ok := a.store.(*storage.Store)
	if !ok && (a.analyzer == nil || a.consolidator == nil) {
		return errors.New("analyzer and consolidator must be supplied along with a custom store")
	}

	if a.analyzer == nil {
		client, err := ai.NewClient(ctx, &a.config.LLM, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
		a.analyzer = classifier.New(store, client, a.config, a.logger)
		a.logger.Info("Classifier initialized", zap.String("model", client.Model()))
	}

	if a.consolidator == nil {
		a.consolidator = consolidate.New(store, a.logger)
	}

	if a.notifier == nil && a.config.Email.Enabled {
		a.notifier = email.NewSender(&a.config.Email)
		a.logger.Info("Email sender initialized", zap.String("to", a.config.Email.ToEmail))
	}

	return nil
}

// Close releases the store.
func (a *PersonaAgent) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// RunOnce analyzes pending items up to the scheduled batch limit, refreshes
// stale product snapshots and mails a digest of what was consolidated.
func (a *PersonaAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	metrics := RunMetrics{}
	logger := a.logger.With(zap.String("run_id", uuid.NewString()))

	critical := func(err error) error {
		if events != nil && events.OnCriticalFailure != nil {
			events.OnCriticalFailure(err, time.Since(startTime))
		}
		return err
	}
	partial := func(err error) {
		if events != nil && events.OnPartialFailure != nil {
			events.OnPartialFailure(err, time.Since(startTime))
		}
	}

	pending, err := a.store.ListSourcesWithPending(ctx, a.config.Pipeline.MinTextLength)
	if err != nil {
		return critical(fmt.Errorf("failed to list pending sources: %w", err))
	}
	logger.Info("Found sources with pending items", zap.Int("sources", len(pending)))

	remaining := a.config.Pipeline.ScheduledBatchLimit
	for _, ref := range pending {
		if remaining <= 0 {
			logger.Info("Scheduled batch limit reached", zap.Int("limit", a.config.Pipeline.ScheduledBatchLimit))
			break
		}

		report, err := a.analyzer.AnalyzeBatch(ctx, ref, classifier.BatchOptions{Limit: remaining})
		if err != nil {
			if ctx.Err() != nil {
				return critical(ctx.Err())
			}
			metrics.SourceErrors++
			logger.Error("Failed to analyze source", zap.Stringer("source", ref), zap.Error(err))
			partial(fmt.Errorf("failed to analyze %s: %w", ref, err))
			continue
		}

		metrics.SourcesProcessed++
		metrics.ItemsAnalyzed += report.Analyzed
		metrics.ItemErrors += report.Errors
		metrics.TokensUsed += report.Tokens
		remaining -= report.Total
	}

	stale, err := a.store.ListStaleProducts(ctx)
	if err != nil {
		return critical(fmt.Errorf("failed to list stale products: %w", err))
	}

	digest := &models.ConsolidationDigest{
		Date:     time.Now(),
		Analyzed: metrics.ItemsAnalyzed,
		Errors:   metrics.ItemErrors,
	}
	for _, p := range stale {
		product, err := a.consolidator.Consolidate(ctx, p.ID)
		if errors.Is(err, consolidate.ErrNoData) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return critical(ctx.Err())
			}
			metrics.ConsolidationErrors++
			logger.Error("Failed to consolidate product", zap.Int64("product_id", p.ID), zap.Error(err))
			partial(fmt.Errorf("failed to consolidate product %d: %w", p.ID, err))
			continue
		}
		metrics.ProductsConsolidated++
		digest.Products = append(digest.Products, product)
	}

	if a.notifier != nil && len(digest.Products) > 0 {
		if err := a.notifier.SendDigest(digest); err != nil {
			logger.Error("Failed to send digest", zap.Error(err))
			partial(fmt.Errorf("failed to send digest: %w", err))
		} else {
			metrics.EmailSent = true
			logger.Info("Digest sent", zap.Int("products", len(digest.Products)))
		}
	}

	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, time.Since(startTime))
	}
	logger.Info("Run complete", zap.String("summary", metrics.GetSummary()))
	return nil
}
