package models

import "time"

// StaleAfter is how long a consolidation snapshot stays fresh.
const StaleAfter = 7 * 24 * time.Hour

type Product struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	TargetAudience   string    `json:"target_audience"`
	PainPoints       string    `json:"pain_points"`
	KeyBenefits      string    `json:"key_benefits"`
	ValueProposition string    `json:"value_proposition"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Consolidated ConsolidatedProduct `json:"consolidated"`
}

// HasConsolidatedData reports whether a usable snapshot exists.
func (p *Product) HasConsolidatedData() bool {
	return p.Consolidated.LastConsolidatedAt != nil && len(p.Consolidated.TopPersonas) > 0
}

// IsConsolidationStale reports whether the snapshot is missing or older than StaleAfter.
func (p *Product) IsConsolidationStale(now time.Time) bool {
	last := p.Consolidated.LastConsolidatedAt
	if last == nil {
		return true
	}
	return now.Sub(*last) > StaleAfter
}

// FieldCount is one consolidated value and how many personas mentioned it.
type FieldCount struct {
	Text      string `json:"text"`
	Frequency int    `json:"frequency"`
}

type Demographics struct {
	AverageAge       *int     `json:"average_age"`
	AgeRange         *string  `json:"age_range"`
	TopOccupations   []string `json:"top_occupations"`
	PersonasAnalyzed int      `json:"personas_analyzed"`
}

// ConsolidatedPersona is a persona in the cross-source shape, carrying its provenance.
type ConsolidatedPersona struct {
	ID          int64      `json:"id"`
	SourceType  SourceType `json:"source"`
	SourceName  string     `json:"source_name"`
	Name        string     `json:"name"`
	Age         string     `json:"age"`
	Occupation  string     `json:"occupation"`
	Description string     `json:"description"`
	Motivations []string   `json:"motivations"`
	PainPoints  []string   `json:"pain_points"`
	Dreams      []string   `json:"dreams"`
	Objections  []string   `json:"objections"`
	Keywords    []string   `json:"keywords"`
	Channels    []string   `json:"channels"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ConsolidatedProduct is the snapshot written onto a product by consolidation.
type ConsolidatedProduct struct {
	TopPersonas        []ConsolidatedPersona `json:"top_personas"`
	PainPoints         []FieldCount          `json:"pain_points"`
	Motivations        []FieldCount          `json:"motivations"`
	Dreams             []FieldCount          `json:"dreams"`
	Objections         []FieldCount          `json:"objections"`
	Keywords           []FieldCount          `json:"keywords"`
	Channels           []FieldCount          `json:"channels"`
	Demographics       Demographics          `json:"demographics"`
	YouTubeInsight     *string               `json:"youtube_insight"`
	SurveyInsight      *string               `json:"survey_insight"`
	TotalPersonas      int                   `json:"total_personas"`
	YouTubePersonas    int                   `json:"youtube_personas"`
	SurveyPersonas     int                   `json:"survey_personas"`
	LastConsolidatedAt *time.Time            `json:"last_consolidated_at"`
}

// ConsolidationDigest is the scheduled-run summary sent by email.
type ConsolidationDigest struct {
	Date     time.Time  `json:"date"`
	Products []*Product `json:"products"`
	Analyzed int        `json:"analyzed"`
	Errors   int        `json:"errors"`
}
