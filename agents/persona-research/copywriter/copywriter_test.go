package copywriter

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"persona-stack/agents/persona-research/consolidate"
	"persona-stack/internal/models"
	"persona-stack/shared/ai"
	"persona-stack/shared/config"
	"persona-stack/shared/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const twoVariations = "```json\n" + `{
  "variations": [
    {
      "headline": "Study less, pass more",
      "subheadline": "Ten minutes a day is enough",
      "body": "You work all day. Your exams don't wait.",
      "cta": "Start free",
      "extras": {"short_text": "Pass with ten minutes a day", "hashtags": ["#study", "#focus"], "score": 9}
    },
    {
      "headline": "No more late nights",
      "body": "A plan that fits your shifts."
    }
  ]
}` + "\n```"

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   *storage.Store
	product *models.Product
}

func newFixture(t *testing.T, consolidated bool) *fixture {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	product := &models.Product{Name: "Focus Course", Description: "Study in ten minutes a day", TargetAudience: "Working adults"}
	require.NoError(t, store.CreateProduct(ctx, product))

	if consolidated {
		snap := consolidate.Build([]*models.BuyerPersona{
			{
				Name:       "Busy Nurse",
				AgeRange:   "35-45",
				Occupation: "Nurse",
				PainPoints: []string{"no time", "expensive"},
				Keywords:   []string{"shifts"},
				Source:     models.SourceRef{Type: models.SourceYouTube, ID: 1},
				SourceName: "Launch video",
				CreatedAt:  now,
			},
			{
				Name:       "Student",
				PainPoints: []string{"no time"},
				Source:     models.SourceRef{Type: models.SourceSurvey, ID: 1},
				SourceName: "Survey",
				CreatedAt:  now.Add(-time.Hour),
			},
		}, now)
		require.NoError(t, store.SaveConsolidation(ctx, product.ID, snap))
	}
	return &fixture{store: store, product: product}
}

func newWriter(f *fixture, client ai.Client) *Writer {
	w := New(f.store, client, config.Defaults(), zap.NewNop())
	w.now = func() time.Time { return now }
	return w
}

func TestGenerate(t *testing.T) {
	f := newFixture(t, true)
	client := ai.NewMockClient(twoVariations)
	w := newWriter(f, client)

	gen, err := w.Generate(context.Background(), f.product.ID, Options{
		Type:       models.CopyInstagramPost,
		Variations: 2,
		Tone:       "casual",
		Objective:  "leads",
		Angle:      "time saving",
	})
	require.NoError(t, err)

	assert.NotZero(t, gen.ID)
	assert.Equal(t, "Instagram Post - Focus Course - 2025-03-10 12:00", gen.Name)
	require.Len(t, gen.Variations, 2)
	assert.Equal(t, "Study less, pass more", gen.Variations[0].Headline)
	assert.Equal(t, "Start free", gen.Variations[0].CTA)
	assert.Equal(t, "#study\n#focus", gen.Variations[0].Extras["hashtags"])
	assert.Equal(t, "9", gen.Variations[0].Extras["score"])
	assert.Nil(t, gen.Variations[1].Extras)
	assert.Equal(t, len([]rune("You work all day. Your exams don't wait.")), gen.CharacterCount)
	assert.Equal(t, 150, gen.TokensUsed)
	assert.Equal(t, "mock-model", gen.Model)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].JSON)
	assert.Equal(t, config.Defaults().LLM.CopyTemperature, calls[0].Temperature)
	assert.Equal(t, config.Defaults().LLM.CopyMaxTokens, calls[0].MaxTokens)
	assert.Contains(t, calls[0].Prompt, "CONSOLIDATED DATA FROM 2 BUYER PERSONAS")
	assert.Contains(t, calls[0].Prompt, "no time, expensive")
	assert.Contains(t, calls[0].Prompt, "TONE: casual, friendly and close")
	assert.Contains(t, calls[0].Prompt, "AD OBJECTIVE: capture leads and sign-ups")
	assert.Contains(t, calls[0].Prompt, "MAIN SALES ANGLE: time saving")
	assert.Contains(t, calls[0].Prompt, "Write 2 complete and different variations")

	saved, err := f.store.ListCopyGenerations(context.Background(), f.product.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, models.CopyInstagramPost, saved[0].Type)
	assert.Len(t, saved[0].Variations, 2)
}

func TestGenerateFocusedOnPersona(t *testing.T) {
	f := newFixture(t, true)
	client := ai.NewMockClient(twoVariations)
	w := newWriter(f, client)

	idx := 0
	gen, err := w.Generate(context.Background(), f.product.ID, Options{Name: "Nurse ad", PersonaIndex: &idx})
	require.NoError(t, err)

	assert.Equal(t, "Nurse ad", gen.Name)
	assert.Equal(t, models.CopyFacebookAd, gen.Type)
	require.NotNil(t, gen.PersonaIndex)
	assert.Equal(t, 0, *gen.PersonaIndex)
	// Only one variation was requested.
	assert.Len(t, gen.Variations, 1)

	prompt := client.Calls()[0].Prompt
	assert.Contains(t, prompt, "SELECTED BUYER PERSONA (of 2 in total)")
	assert.Contains(t, prompt, "- Name: Busy Nurse")
	assert.Contains(t, prompt, "- Source: Launch video")
	assert.NotContains(t, prompt, "CONSOLIDATED DATA")
}

func TestGenerateRequiresConsolidation(t *testing.T) {
	f := newFixture(t, false)
	client := ai.NewMockClient(twoVariations)

	_, err := newWriter(f, client).Generate(context.Background(), f.product.ID, Options{})
	assert.ErrorIs(t, err, ErrNotConsolidated)
	assert.Zero(t, client.CallCount())
}

func TestGenerateValidatesOptions(t *testing.T) {
	f := newFixture(t, true)
	client := ai.NewMockClient(twoVariations)
	w := newWriter(f, client)
	ctx := context.Background()

	_, err := w.Generate(ctx, f.product.ID, Options{Type: "billboard"})
	assert.Error(t, err)

	_, err = w.Generate(ctx, f.product.ID, Options{Variations: MaxVariations + 1})
	assert.Error(t, err)

	idx := 7
	_, err = w.Generate(ctx, f.product.ID, Options{PersonaIndex: &idx})
	assert.Error(t, err)

	assert.Zero(t, client.CallCount())
}

func TestGenerateUnparseableResponse(t *testing.T) {
	f := newFixture(t, true)
	w := newWriter(f, ai.NewMockClient("I cannot help with that."))

	_, err := w.Generate(context.Background(), f.product.ID, Options{})
	var perr *ai.ParseError
	assert.True(t, errors.As(err, &perr))

	saved, err := f.store.ListCopyGenerations(context.Background(), f.product.ID)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestParseVariations(t *testing.T) {
	got, err := ParseVariations(`[{"headline": " Hi ", "body": "Body"}, {"cta": "only a cta"}]`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Hi", got[0].Headline)

	_, err = ParseVariations(`{"variations": []}`)
	assert.Error(t, err)

	_, err = ParseVariations(`{"variations": [{"cta": "x"}]}`)
	assert.Error(t, err)
}

func TestTypeLabel(t *testing.T) {
	for _, ct := range models.CopyTypes {
		assert.NotEqual(t, string(ct), TypeLabel(ct))
		assert.Contains(t, instructions, ct)
	}
	assert.Equal(t, "billboard", TypeLabel("billboard"))
}
