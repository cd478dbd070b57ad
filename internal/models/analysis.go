package models

import "time"

type Category string

const (
	CategoryNeed               Category = "need"
	CategoryPain               Category = "pain"
	CategoryDream              Category = "dream"
	CategoryObjection          Category = "objection"
	CategoryQuestion           Category = "question"
	CategoryPositiveExperience Category = "positive_experience"
	CategoryNegativeExperience Category = "negative_experience"
	CategorySuggestion         Category = "suggestion"
	CategoryOther              Category = "other"
)

// Categories lists every valid category in prompt order.
var Categories = []Category{
	CategoryNeed,
	CategoryPain,
	CategoryDream,
	CategoryObjection,
	CategoryQuestion,
	CategoryPositiveExperience,
	CategoryNegativeExperience,
	CategorySuggestion,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Sentiments is also the coverage order used when sampling.
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

func (s Sentiment) Valid() bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative
}

type Insights struct {
	BuyerInsight string `json:"buyer_insight,omitempty"`
	PainPoint    string `json:"pain_point,omitempty"`
	Opportunity  string `json:"opportunity,omitempty"`
}

// Values returns the non-empty insight strings in field order.
func (i Insights) Values() []string {
	var out []string
	for _, v := range []string{i.BuyerInsight, i.PainPoint, i.Opportunity} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// AnalysisRecord is the classification of one content item.
type AnalysisRecord struct {
	ID             int64     `json:"id"`
	ContentItemID  int64     `json:"content_item_id"`
	Source         SourceRef `json:"source"`
	Category       Category  `json:"category"`
	Sentiment      Sentiment `json:"sentiment"`
	RelevanceScore int       `json:"relevance_score"`
	IsRelevant     bool      `json:"is_relevant"`
	Keywords       []string  `json:"keywords"`
	Insights       Insights  `json:"insights"`
	Analysis       string    `json:"analysis"`
	Model          string    `json:"model"`
	TokensUsed     int       `json:"tokens_used"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// BatchReport summarizes one analyzeBatch run.
type BatchReport struct {
	Total    int `json:"total"`
	Analyzed int `json:"analyzed"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
	Tokens   int `json:"tokens"`
}

// AnalysisStats aggregates the analyses of one source.
type AnalysisStats struct {
	Total        int               `json:"total"`
	Relevant     int               `json:"relevant"`
	ByCategory   map[Category]int  `json:"by_category"`
	BySentiment  map[Sentiment]int `json:"by_sentiment"`
	AverageScore float64           `json:"average_score"`
	TopKeywords  []FieldCount      `json:"top_keywords"`
	PendingItems int               `json:"pending_items"`
	TotalItems   int               `json:"total_items"`
	TotalTokens  int               `json:"total_tokens"`
}
