package consolidate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"persona-stack/internal/models"
	"persona-stack/shared/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fullPersona(name string) *models.BuyerPersona {
	return &models.BuyerPersona{
		Name:              name,
		AgeRange:          "30-40",
		Occupation:        "Designer",
		Description:       "Freelancer",
		Motivations:       []string{"grow"},
		PainPoints:        []string{"slow"},
		Dreams:            []string{"travel"},
		Objections:        []string{"price"},
		Keywords:          []string{"figma"},
		PreferredChannels: []string{"YouTube"},
	}
}

func TestCompleteness(t *testing.T) {
	p := fullPersona("Full")
	assert.Equal(t, 100, Completeness(p))

	p.Dreams = nil
	p.Objections = []string{}
	assert.Equal(t, 80, Completeness(p))

	assert.Equal(t, 0, Completeness(&models.BuyerPersona{}))
}

func TestRankScoreFavoursRecentCompletePersonas(t *testing.T) {
	recent := RankScore(80, now.Add(-24*time.Hour), now)
	old := RankScore(40, now.Add(-40*24*time.Hour), now)

	assert.InDelta(t, 85.5, recent, 0.001)
	assert.InDelta(t, 38.0, old, 0.001)
	assert.Greater(t, recent, old)

	// Recency never goes negative.
	assert.InDelta(t, 70.0, RankScore(100, now.Add(-365*24*time.Hour), now), 0.001)
	// Partial days are floored.
	assert.InDelta(t, 30.0, RankScore(0, now.Add(-23*time.Hour), now), 0.001)
}

func TestCountField(t *testing.T) {
	got := CountField([][]string{{"slow", "expensive"}, {"slow"}, {"confusing"}}, 15)
	assert.Equal(t, []models.FieldCount{
		{Text: "slow", Frequency: 2},
		{Text: "expensive", Frequency: 1},
		{Text: "confusing", Frequency: 1},
	}, got)

	got = CountField([][]string{{" a ", "", "  ", "b"}, {"b", "c"}}, 2)
	assert.Equal(t, []models.FieldCount{
		{Text: "b", Frequency: 2},
		{Text: "a", Frequency: 1},
	}, got)

	assert.Empty(t, CountField(nil, 5))
}

func TestBuildTopPersonas(t *testing.T) {
	var personas []*models.BuyerPersona
	for i, age := range []int{40, 1, 2, 3, 4, 5, 6} {
		p := fullPersona(string(rune('A' + i)))
		p.ID = int64(i + 1)
		p.CreatedAt = now.Add(-time.Duration(age) * 24 * time.Hour)
		p.Source = models.SourceRef{Type: models.SourceYouTube, ID: 1}
		personas = append(personas, p)
	}
	sparse := &models.BuyerPersona{ID: 99, Source: models.SourceRef{Type: models.SourceSurvey, ID: 2}, CreatedAt: now}
	personas = append(personas, sparse)

	snap := Build(personas, now)
	require.Len(t, snap.TopPersonas, TopPersonas)
	var names []string
	for _, p := range snap.TopPersonas {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"B", "C", "D", "E", "F"}, names)

	assert.Equal(t, 8, snap.TotalPersonas)
	assert.Equal(t, 7, snap.YouTubePersonas)
	assert.Equal(t, 1, snap.SurveyPersonas)
	require.NotNil(t, snap.LastConsolidatedAt)
	assert.Equal(t, now, *snap.LastConsolidatedAt)
	assert.Equal(t, []models.FieldCount{{Text: "slow", Frequency: 7}}, snap.PainPoints)
}

func TestBuildNormalizesMissingFields(t *testing.T) {
	p := &models.BuyerPersona{Source: models.SourceRef{Type: models.SourceSurvey, ID: 1}, SourceName: "Form"}
	snap := Build([]*models.BuyerPersona{p}, now)

	require.Len(t, snap.TopPersonas, 1)
	top := snap.TopPersonas[0]
	assert.Equal(t, "Unnamed", top.Name)
	assert.Equal(t, "Not specified", top.Age)
	assert.Equal(t, "Not specified", top.Occupation)
	assert.Equal(t, models.SourceSurvey, top.SourceType)
	assert.NotNil(t, top.PainPoints)
	assert.NotNil(t, top.Channels)

	assert.Nil(t, snap.Demographics.AverageAge)
	assert.Nil(t, snap.Demographics.AgeRange)
	assert.Empty(t, snap.Demographics.TopOccupations)
	assert.Equal(t, 1, snap.Demographics.PersonasAnalyzed)
}

func TestBuildDemographics(t *testing.T) {
	mk := func(age, occupation string) *models.BuyerPersona {
		return &models.BuyerPersona{AgeRange: age, Occupation: occupation, Source: models.SourceRef{Type: models.SourceYouTube, ID: 1}}
	}
	snap := Build([]*models.BuyerPersona{
		mk("25-35 years", "Nurse"),
		mk("about 40", "Designer"),
		mk("unknown", "Nurse"),
		mk("18", ""),
	}, now)

	d := snap.Demographics
	require.NotNil(t, d.AverageAge)
	assert.Equal(t, 27, *d.AverageAge)
	require.NotNil(t, d.AgeRange)
	assert.Equal(t, "18 - 40", *d.AgeRange)
	assert.Equal(t, []string{"Nurse", "Designer"}, d.TopOccupations)
	assert.Equal(t, 4, d.PersonasAnalyzed)
}

func TestBuildInsights(t *testing.T) {
	yt := func(name string) *models.BuyerPersona {
		return &models.BuyerPersona{Source: models.SourceRef{Type: models.SourceYouTube, ID: 1}, SourceName: name}
	}
	snap := Build([]*models.BuyerPersona{yt("Video one"), yt("Video one"), yt("Video two")}, now)

	require.NotNil(t, snap.YouTubeInsight)
	assert.Contains(t, *snap.YouTubeInsight, "Analyzed 3 buyer personas from 2 YouTube videos.")
	assert.Nil(t, snap.SurveyInsight)
}

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestConsolidate(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	product := &models.Product{Name: "Focus Course"}
	require.NoError(t, store.CreateProduct(ctx, product))
	video := &models.Video{VideoID: "dQw4w9WgXcQ", Title: "Launch video", ProductID: &product.ID}
	require.NoError(t, store.UpsertVideo(ctx, video))
	survey := &models.Survey{SpreadsheetID: "sheet-1", Title: "Onboarding survey", ProductID: &product.ID}
	require.NoError(t, store.UpsertSurvey(ctx, survey))

	require.NoError(t, store.ReplacePersonas(ctx, video.Ref(), []*models.BuyerPersona{fullPersona("Viewer")}, 10))
	require.NoError(t, store.ReplacePersonas(ctx, survey.Ref(), []*models.BuyerPersona{fullPersona("Respondent")}, 5))

	c := New(store, zap.NewNop())
	c.now = func() time.Time { return now }

	got, err := c.Consolidate(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, got.HasConsolidatedData())
	assert.Equal(t, 2, got.Consolidated.TotalPersonas)
	assert.Equal(t, 1, got.Consolidated.YouTubePersonas)
	assert.Equal(t, 1, got.Consolidated.SurveyPersonas)
	require.NotNil(t, got.Consolidated.YouTubeInsight)
	require.NotNil(t, got.Consolidated.SurveyInsight)
	assert.Equal(t, "Launch video", got.Consolidated.TopPersonas[0].SourceName)
}

func TestConsolidateWithoutPersonasKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	product := &models.Product{Name: "Focus Course"}
	require.NoError(t, store.CreateProduct(ctx, product))
	previous := Build([]*models.BuyerPersona{fullPersona("Old")}, now.Add(-48*time.Hour))
	require.NoError(t, store.SaveConsolidation(ctx, product.ID, previous))

	c := New(store, zap.NewNop())
	_, err := c.Consolidate(ctx, product.ID)
	assert.ErrorIs(t, err, ErrNoData)

	got, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Consolidated.TotalPersonas)
	require.NotNil(t, got.Consolidated.LastConsolidatedAt)
	assert.WithinDuration(t, now.Add(-48*time.Hour), *got.Consolidated.LastConsolidatedAt, time.Second)
}

func TestConsolidateUnknownProduct(t *testing.T) {
	c := New(openStore(t), zap.NewNop())
	_, err := c.Consolidate(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
