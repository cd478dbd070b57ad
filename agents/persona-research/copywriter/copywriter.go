// Package copywriter writes marketing copy from a product's consolidated
// buyer persona snapshot.
package copywriter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"persona-stack/internal/models"
	"persona-stack/shared/ai"
	"persona-stack/shared/config"

	"go.uber.org/zap"
)

const MaxVariations = 5

// ErrNotConsolidated is returned for products without a usable snapshot.
var ErrNotConsolidated = errors.New("product has no consolidated buyer persona data")

type Store interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	SaveCopyGeneration(ctx context.Context, g *models.CopyGeneration) error
}

type Options struct {
	Type       models.CopyType
	Name       string
	Variations int
	Tone       string
	Objective  string
	Angle      string
	// PersonaIndex focuses the copy on one of the snapshot's top personas.
	PersonaIndex *int
}

type Writer struct {
	store  Store
	client ai.Client
	llm    config.LLMConfig
	logger *zap.Logger
	now    func() time.Time
}

func New(store Store, client ai.Client, cfg *config.Config, logger *zap.Logger) *Writer {
	return &Writer{
		store:  store,
		client: client,
		llm:    cfg.LLM,
		logger: logger.Named("copywriter"),
		now:    time.Now,
	}
}

// Generate writes copy for the product and stores it as a new generation.
func (w *Writer) Generate(ctx context.Context, productID int64, opts Options) (*models.CopyGeneration, error) {
	if opts.Type == "" {
		opts.Type = models.CopyFacebookAd
	}
	if !opts.Type.Valid() {
		return nil, fmt.Errorf("unknown copy type %q", opts.Type)
	}
	if opts.Variations < 1 {
		opts.Variations = 1
	}
	if opts.Variations > MaxVariations {
		return nil, fmt.Errorf("at most %d variations can be generated, got %d", MaxVariations, opts.Variations)
	}

	product, err := w.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.HasConsolidatedData() {
		return nil, ErrNotConsolidated
	}

	var focus *models.ConsolidatedPersona
	if opts.PersonaIndex != nil {
		idx := *opts.PersonaIndex
		if idx < 0 || idx >= len(product.Consolidated.TopPersonas) {
			return nil, fmt.Errorf("persona index %d out of range, product has %d top personas",
				idx, len(product.Consolidated.TopPersonas))
		}
		focus = &product.Consolidated.TopPersonas[idx]
	}

	resp, err := w.client.Complete(ctx, ai.Request{
		System:      systemPrompt,
		Prompt:      buildPrompt(product, focus, opts),
		Temperature: w.llm.CopyTemperature,
		MaxTokens:   w.llm.CopyMaxTokens,
		Timeout:     w.llm.GenerateTimeout,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate %s copy for product %d: %w", opts.Type, productID, err)
	}

	variations, err := ParseVariations(resp.Content)
	if err != nil {
		return nil, err
	}
	if len(variations) != opts.Variations {
		w.logger.Warn("Model returned a different number of variations",
			zap.Int64("product_id", productID),
			zap.Int("requested", opts.Variations),
			zap.Int("received", len(variations)))
	}
	if len(variations) > opts.Variations {
		variations = variations[:opts.Variations]
	}

	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("%s - %s - %s", TypeLabel(opts.Type), product.Name, w.now().Format("2006-01-02 15:04"))
	}
	model := resp.Model
	if model == "" {
		model = w.client.Model()
	}

	gen := &models.CopyGeneration{
		ProductID:      productID,
		Type:           opts.Type,
		Name:           name,
		Tone:           opts.Tone,
		Objective:      opts.Objective,
		Angle:          opts.Angle,
		PersonaIndex:   opts.PersonaIndex,
		Variations:     variations,
		CharacterCount: utf8.RuneCountInString(variations[0].Body),
		Model:          model,
		TokensUsed:     resp.TotalTokens,
	}
	if err := w.store.SaveCopyGeneration(ctx, gen); err != nil {
		return nil, err
	}

	w.logger.Info("Generated copy",
		zap.Int64("product_id", productID),
		zap.String("type", string(opts.Type)),
		zap.Int("variations", len(variations)),
		zap.Int("tokens", resp.TotalTokens))

	return gen, nil
}

type rawVariation struct {
	Headline    string         `json:"headline"`
	Subheadline string         `json:"subheadline"`
	Body        string         `json:"body"`
	CTA         string         `json:"cta"`
	Extras      map[string]any `json:"extras"`
}

// ParseVariations decodes {"variations":[...]} or a bare array. Variations
// without a headline or body are dropped.
func ParseVariations(content string) ([]models.CopyVariation, error) {
	var raw []rawVariation
	var wrapped struct {
		Variations []rawVariation `json:"variations"`
	}
	if err := ai.DecodeJSON(content, &wrapped); err == nil && len(wrapped.Variations) > 0 {
		raw = wrapped.Variations
	} else if err := ai.DecodeJSON(content, &raw); err != nil {
		return nil, err
	}

	var out []models.CopyVariation
	for _, r := range raw {
		v := models.CopyVariation{
			Headline:    strings.TrimSpace(r.Headline),
			Subheadline: strings.TrimSpace(r.Subheadline),
			Body:        strings.TrimSpace(r.Body),
			CTA:         strings.TrimSpace(r.CTA),
		}
		if v.Headline == "" && v.Body == "" {
			continue
		}
		for k, val := range r.Extras {
			s := extraString(val)
			if s == "" {
				continue
			}
			if v.Extras == nil {
				v.Extras = make(map[string]string)
			}
			v.Extras[k] = s
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, &ai.ParseError{Raw: content, Err: errors.New("no copy variations in response")}
	}
	return out, nil
}

func extraString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := extraString(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
