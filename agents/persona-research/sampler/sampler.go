// Package sampler picks a bounded, diverse subset of analyses for persona
// prompts and condenses it into a summary.
package sampler

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"persona-stack/internal/models"
)

const (
	DefaultCap   = 80
	TopRelevant  = 20
	PerCategory  = 5
	PerSentiment = 5

	maxKeywords      = 5
	maxAnalysisRunes = 200
	summaryKeywords  = 15
	summaryInsights  = 10
	minInsightRunes  = 20
	maxInsightRunes  = 100
)

// Sample returns at most limit analyses: the most relevant first, then the
// best of every category present, then the best of every sentiment. Records
// appear once.
func Sample(analyses []*models.AnalysisRecord, limit int) []*models.AnalysisRecord {
	if limit <= 0 {
		limit = DefaultCap
	}

	byScore := make([]*models.AnalysisRecord, len(analyses))
	copy(byScore, analyses)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].RelevanceScore > byScore[j].RelevanceScore
	})

	var out []*models.AnalysisRecord
	seen := make(map[int64]bool)
	add := func(r *models.AnalysisRecord) {
		if !seen[r.ID] {
			seen[r.ID] = true
			out = append(out, r)
		}
	}

	take(byScore, TopRelevant, func(r *models.AnalysisRecord) bool { return r.IsRelevant }, add)

	var categories []models.Category
	seenCategory := make(map[models.Category]bool)
	for _, r := range analyses {
		if !seenCategory[r.Category] {
			seenCategory[r.Category] = true
			categories = append(categories, r.Category)
		}
	}
	for _, c := range categories {
		take(byScore, PerCategory, func(r *models.AnalysisRecord) bool { return r.Category == c }, add)
	}

	for _, s := range models.Sentiments {
		take(byScore, PerSentiment, func(r *models.AnalysisRecord) bool { return r.Sentiment == s }, add)
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func take(sorted []*models.AnalysisRecord, n int, match func(*models.AnalysisRecord) bool, add func(*models.AnalysisRecord)) {
	for _, r := range sorted {
		if n == 0 {
			return
		}
		if match(r) {
			add(r)
			n--
		}
	}
}

// Essential is the reduced form of an analysis sent to the model.
type Essential struct {
	Category       models.Category  `json:"category"`
	Sentiment      models.Sentiment `json:"sentiment"`
	RelevanceScore int              `json:"relevance_score"`
	Keywords       []string         `json:"keywords"`
	Insights       models.Insights  `json:"insights"`
	Analysis       string           `json:"analysis"`
}

func Essentials(sample []*models.AnalysisRecord) []Essential {
	out := make([]Essential, 0, len(sample))
	for _, r := range sample {
		keywords := r.Keywords
		if len(keywords) > maxKeywords {
			keywords = keywords[:maxKeywords]
		}
		out = append(out, Essential{
			Category:       r.Category,
			Sentiment:      r.Sentiment,
			RelevanceScore: r.RelevanceScore,
			Keywords:       keywords,
			Insights:       r.Insights,
			Analysis:       truncate(r.Analysis, maxAnalysisRunes),
		})
	}
	return out
}

// Summary is the statistical digest placed in the persona prompt.
type Summary struct {
	Categories  []Count
	Sentiments  []Count
	TopKeywords []string
	Insights    []string
}

type Count struct {
	Label string `json:"label"`
	N     int    `json:"count"`
}

func Summarize(essentials []Essential) Summary {
	var s Summary
	categories := newCounter()
	sentiments := newCounter()
	keywords := newCounter()

	for _, e := range essentials {
		categories.add(string(e.Category))
		sentiments.add(string(e.Sentiment))
		for _, k := range e.Keywords {
			keywords.add(k)
		}
		for _, v := range e.Insights.Values() {
			if utf8.RuneCountInString(v) > minInsightRunes && len(s.Insights) < summaryInsights {
				s.Insights = append(s.Insights, truncate(v, maxInsightRunes))
			}
		}
	}

	s.Categories = categories.counts()
	s.Sentiments = sentiments.counts()
	for i, c := range keywords.sorted() {
		if i == summaryKeywords {
			break
		}
		s.TopKeywords = append(s.TopKeywords, c.Label)
	}
	return s
}

func (s Summary) String() string {
	var b strings.Builder
	b.WriteString("DISTRIBUTION:\n")
	fmt.Fprintf(&b, "- Categories: %s\n", countsJSON(s.Categories))
	fmt.Fprintf(&b, "- Sentiments: %s\n", countsJSON(s.Sentiments))
	fmt.Fprintf(&b, "- Top keywords: %s\n\n", strings.Join(s.TopKeywords, ", "))
	b.WriteString("KEY INSIGHTS (sample):\n")
	for i, insight := range s.Insights {
		fmt.Fprintf(&b, "%d. %s\n", i+1, insight)
	}
	return b.String()
}

func countsJSON(counts []Count) string {
	m := make(map[string]int, len(counts))
	for _, c := range counts {
		m[c.Label] = c.N
	}
	data, _ := json.Marshal(m)
	return string(data)
}

// counter tallies labels and remembers first-seen order for ties.
type counter struct {
	order []string
	n     map[string]int
}

func newCounter() *counter {
	return &counter{n: make(map[string]int)}
}

func (c *counter) add(label string) {
	if _, ok := c.n[label]; !ok {
		c.order = append(c.order, label)
	}
	c.n[label]++
}

func (c *counter) counts() []Count {
	out := make([]Count, 0, len(c.order))
	for _, l := range c.order {
		out = append(out, Count{Label: l, N: c.n[l]})
	}
	return out
}

func (c *counter) sorted() []Count {
	out := c.counts()
	sort.SliceStable(out, func(i, j int) bool { return out[i].N > out[j].N })
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
