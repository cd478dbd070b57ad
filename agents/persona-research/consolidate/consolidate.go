// Package consolidate merges the personas of every source linked to a
// product into one ranked snapshot.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"persona-stack/internal/models"

	"go.uber.org/zap"
)

// ErrNoData is returned when no linked source has personas.
var ErrNoData = errors.New("no buyer personas to consolidate for this product")

const (
	TopPersonas = 5

	defaultFieldLimit   = 15
	keywordFieldLimit   = 20
	channelFieldLimit   = 10
	topOccupationsLimit = 5

	completenessWeight = 0.7
	maxRecencyScore    = 30.0
	recencyDecayPerDay = 0.5

	unnamed      = "Unnamed"
	notSpecified = "Not specified"
)

type Store interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProductPersonas(ctx context.Context, productID int64) ([]*models.BuyerPersona, error)
	SaveConsolidation(ctx context.Context, productID int64, snap models.ConsolidatedProduct) error
}

type Consolidator struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func New(store Store, logger *zap.Logger) *Consolidator {
	return &Consolidator{
		store:  store,
		logger: logger.Named("consolidate"),
		now:    time.Now,
	}
}

// Consolidate rebuilds the product's snapshot from scratch. With no personas
// it fails with ErrNoData and the previous snapshot stays as it was.
func (c *Consolidator) Consolidate(ctx context.Context, productID int64) (*models.Product, error) {
	if _, err := c.store.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	personas, err := c.store.ListProductPersonas(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(personas) == 0 {
		return nil, ErrNoData
	}

	snap := Build(personas, c.now())
	if err := c.store.SaveConsolidation(ctx, productID, snap); err != nil {
		return nil, fmt.Errorf("save consolidation of product %d: %w", productID, err)
	}

	c.logger.Info("Consolidated product",
		zap.Int64("product_id", productID),
		zap.Int("personas", snap.TotalPersonas),
		zap.Int("youtube_personas", snap.YouTubePersonas),
		zap.Int("survey_personas", snap.SurveyPersonas))

	return c.store.GetProduct(ctx, productID)
}

type scored struct {
	persona      models.ConsolidatedPersona
	completeness int
}

// Build computes a snapshot from personas as of now.
func Build(personas []*models.BuyerPersona, now time.Time) models.ConsolidatedProduct {
	all := make([]scored, 0, len(personas))
	var youtube, surveys []models.ConsolidatedPersona
	for _, p := range personas {
		s := scored{persona: toConsolidated(p), completeness: Completeness(p)}
		all = append(all, s)
		switch p.Source.Type {
		case models.SourceYouTube:
			youtube = append(youtube, s.persona)
		case models.SourceSurvey:
			surveys = append(surveys, s.persona)
		}
	}

	field := func(get func(models.ConsolidatedPersona) []string, limit int) []models.FieldCount {
		lists := make([][]string, len(all))
		for i, s := range all {
			lists[i] = get(s.persona)
		}
		return CountField(lists, limit)
	}

	return models.ConsolidatedProduct{
		TopPersonas: selectTop(all, now),
		PainPoints:  field(func(p models.ConsolidatedPersona) []string { return p.PainPoints }, defaultFieldLimit),
		Motivations: field(func(p models.ConsolidatedPersona) []string { return p.Motivations }, defaultFieldLimit),
		Dreams:      field(func(p models.ConsolidatedPersona) []string { return p.Dreams }, defaultFieldLimit),
		Objections:  field(func(p models.ConsolidatedPersona) []string { return p.Objections }, defaultFieldLimit),
		Keywords:    field(func(p models.ConsolidatedPersona) []string { return p.Keywords }, keywordFieldLimit),
		Channels:    field(func(p models.ConsolidatedPersona) []string { return p.Channels }, channelFieldLimit),

		Demographics:       demographics(personas),
		YouTubeInsight:     youtubeInsight(youtube),
		SurveyInsight:      surveyInsight(surveys),
		TotalPersonas:      len(all),
		YouTubePersonas:    len(youtube),
		SurveyPersonas:     len(surveys),
		LastConsolidatedAt: &now,
	}
}

func toConsolidated(p *models.BuyerPersona) models.ConsolidatedPersona {
	orDefault := func(s, def string) string {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	}
	return models.ConsolidatedPersona{
		ID:          p.ID,
		SourceType:  p.Source.Type,
		SourceName:  p.SourceName,
		Name:        orDefault(p.Name, unnamed),
		Age:         orDefault(p.AgeRange, notSpecified),
		Occupation:  orDefault(p.Occupation, notSpecified),
		Description: p.Description,
		Motivations: nonNil(p.Motivations),
		PainPoints:  nonNil(p.PainPoints),
		Dreams:      nonNil(p.Dreams),
		Objections:  nonNil(p.Objections),
		Keywords:    nonNil(p.Keywords),
		Channels:    nonNil(p.PreferredChannels),
		CreatedAt:   p.CreatedAt,
	}
}

// Completeness is the percentage of the ten tracked persona fields that are
// filled in, truncated to an integer.
func Completeness(p *models.BuyerPersona) int {
	filled := 0
	for _, s := range []string{p.Name, p.AgeRange, p.Occupation, p.Description} {
		if strings.TrimSpace(s) != "" {
			filled++
		}
	}
	for _, l := range [][]string{p.Motivations, p.PainPoints, p.Dreams, p.Objections, p.Keywords, p.PreferredChannels} {
		if len(l) > 0 {
			filled++
		}
	}
	return filled * 100 / 10
}

// RankScore weighs completeness against age: 0.7 per completeness point plus
// up to 30 points that decay by half a point per whole day.
func RankScore(completeness int, createdAt, now time.Time) float64 {
	days := math.Floor(math.Abs(now.Sub(createdAt).Hours()) / 24)
	recency := math.Max(0, maxRecencyScore-recencyDecayPerDay*days)
	return completenessWeight*float64(completeness) + recency
}

func selectTop(all []scored, now time.Time) []models.ConsolidatedPersona {
	ranked := make([]scored, len(all))
	copy(ranked, all)
	sort.SliceStable(ranked, func(i, j int) bool {
		return RankScore(ranked[i].completeness, ranked[i].persona.CreatedAt, now) >
			RankScore(ranked[j].completeness, ranked[j].persona.CreatedAt, now)
	})
	if len(ranked) > TopPersonas {
		ranked = ranked[:TopPersonas]
	}

	out := make([]models.ConsolidatedPersona, len(ranked))
	for i, s := range ranked {
		out[i] = s.persona
	}
	return out
}

// CountField flattens lists, counts each trimmed non-empty value and returns
// the limit most frequent. Equal counts keep first-seen order.
func CountField(lists [][]string, limit int) []models.FieldCount {
	var order []string
	counts := make(map[string]int)
	for _, l := range lists {
		for _, item := range l {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if _, ok := counts[item]; !ok {
				order = append(order, item)
			}
			counts[item]++
		}
	}

	out := make([]models.FieldCount, 0, len(order))
	for _, item := range order {
		out = append(out, models.FieldCount{Text: item, Frequency: counts[item]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frequency > out[j].Frequency })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

var agePattern = regexp.MustCompile(`\d+`)

func demographics(personas []*models.BuyerPersona) models.Demographics {
	var ages []int
	var occupations []string
	for _, p := range personas {
		if m := agePattern.FindString(p.AgeRange); m != "" {
			if age, err := strconv.Atoi(m); err == nil {
				ages = append(ages, age)
			}
		}
		if occ := strings.TrimSpace(p.Occupation); occ != "" {
			occupations = append(occupations, occ)
		}
	}

	d := models.Demographics{
		TopOccupations:   []string{},
		PersonasAnalyzed: len(personas),
	}
	if len(ages) > 0 {
		sum, lo, hi := 0, ages[0], ages[0]
		for _, a := range ages {
			sum += a
			lo = min(lo, a)
			hi = max(hi, a)
		}
		avg := sum / len(ages)
		rng := fmt.Sprintf("%d - %d", lo, hi)
		d.AverageAge = &avg
		d.AgeRange = &rng
	}
	for _, fc := range CountField([][]string{occupations}, topOccupationsLimit) {
		d.TopOccupations = append(d.TopOccupations, fc.Text)
	}
	return d
}

func youtubeInsight(personas []models.ConsolidatedPersona) *string {
	if len(personas) == 0 {
		return nil
	}
	s := fmt.Sprintf("Analyzed %d buyer personas from %d YouTube videos. "+
		"Patterns show an active audience on video content with high engagement.",
		len(personas), distinctSources(personas))
	return &s
}

func surveyInsight(personas []models.ConsolidatedPersona) *string {
	if len(personas) == 0 {
		return nil
	}
	s := fmt.Sprintf("Analyzed %d buyer personas from %d Google Forms surveys. "+
		"Direct survey data with structured answers.",
		len(personas), distinctSources(personas))
	return &s
}

func distinctSources(personas []models.ConsolidatedPersona) int {
	names := make(map[string]bool)
	for _, p := range personas {
		names[p.SourceName] = true
	}
	return len(names)
}

func nonNil(l []string) []string {
	if l == nil {
		return []string{}
	}
	return l
}
