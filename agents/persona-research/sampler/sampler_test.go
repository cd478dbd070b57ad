package sampler

import (
	"fmt"
	"strings"
	"testing"

	"persona-stack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id int64, cat models.Category, sent models.Sentiment, score int, relevant bool) *models.AnalysisRecord {
	return &models.AnalysisRecord{ID: id, Category: cat, Sentiment: sent, RelevanceScore: score, IsRelevant: relevant}
}

func TestSampleCapAndUniqueness(t *testing.T) {
	var analyses []*models.AnalysisRecord
	id := int64(1)
	for _, cat := range models.Categories {
		for i := 0; i < 30; i++ {
			sent := models.Sentiments[i%3]
			analyses = append(analyses, record(id, cat, sent, 1+i%10, i%2 == 0))
			id++
		}
	}

	sample := Sample(analyses, DefaultCap)
	assert.LessOrEqual(t, len(sample), DefaultCap)

	seen := map[int64]bool{}
	for _, r := range sample {
		require.False(t, seen[r.ID], "duplicate record %d", r.ID)
		seen[r.ID] = true
	}
}

func TestSampleCoverage(t *testing.T) {
	var analyses []*models.AnalysisRecord
	// 30 highly relevant pain records dominate by score.
	for i := int64(1); i <= 30; i++ {
		analyses = append(analyses, record(i, models.CategoryPain, models.SentimentNegative, 10, true))
	}
	rareQuestion := record(100, models.CategoryQuestion, models.SentimentNeutral, 2, false)
	rarePositive := record(101, models.CategoryOther, models.SentimentPositive, 1, false)
	analyses = append(analyses, rareQuestion, rarePositive)

	sample := Sample(analyses, DefaultCap)

	ids := map[int64]bool{}
	for _, r := range sample {
		ids[r.ID] = true
	}
	assert.True(t, ids[100], "rare category is represented")
	assert.True(t, ids[101], "rare sentiment is represented")
	// 20 top relevant + nothing new from pain/negative (already in) + the two rare ones.
	assert.Len(t, sample, 22)
	assert.Equal(t, int64(1), sample[0].ID, "ties keep input order")
}

func TestSampleOrderAndTruncation(t *testing.T) {
	analyses := []*models.AnalysisRecord{
		record(1, models.CategoryNeed, models.SentimentNeutral, 3, true),
		record(2, models.CategoryNeed, models.SentimentNeutral, 9, true),
		record(3, models.CategoryDream, models.SentimentPositive, 5, false),
	}

	sample := Sample(analyses, 2)
	require.Len(t, sample, 2)
	assert.Equal(t, int64(2), sample[0].ID)
	assert.Equal(t, int64(1), sample[1].ID)
}

func TestEssentials(t *testing.T) {
	r := record(1, models.CategoryPain, models.SentimentNegative, 7, true)
	r.Keywords = []string{"a", "b", "c", "d", "e", "f", "g"}
	r.Analysis = strings.Repeat("ñ", 250)

	e := Essentials([]*models.AnalysisRecord{r})
	require.Len(t, e, 1)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, e[0].Keywords)
	assert.Equal(t, 200, len([]rune(e[0].Analysis)))
	assert.Len(t, r.Keywords, 7, "source record is not modified")
}

func TestSummarize(t *testing.T) {
	var essentials []Essential
	for i := 0; i < 12; i++ {
		essentials = append(essentials, Essential{
			Category:  models.CategoryPain,
			Sentiment: models.SentimentNegative,
			Keywords:  []string{"price", fmt.Sprintf("kw%d", i)},
			Insights: models.Insights{
				BuyerInsight: "short",
				PainPoint:    strings.Repeat("p", 120),
			},
		})
	}
	essentials = append(essentials, Essential{Category: models.CategoryDream, Sentiment: models.SentimentPositive})

	s := Summarize(essentials)
	assert.Equal(t, []Count{{"pain", 12}, {"dream", 1}}, s.Categories)
	assert.Equal(t, []Count{{"negative", 12}, {"positive", 1}}, s.Sentiments)
	require.Len(t, s.TopKeywords, 13)
	assert.Equal(t, "price", s.TopKeywords[0])
	assert.Equal(t, "kw0", s.TopKeywords[1], "ties keep first-seen order")
	require.Len(t, s.Insights, 10)
	assert.Len(t, s.Insights[0], 100)

	text := s.String()
	assert.Contains(t, text, `"pain":12`)
	assert.Contains(t, text, "Top keywords: price, kw0")
	assert.Contains(t, text, "10. ")
}
