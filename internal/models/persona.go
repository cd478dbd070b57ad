package models

import "time"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// BuyerPersona is the canonical persona shape. Source naming differences are
// resolved once when the persona is built, never at read sites.
type BuyerPersona struct {
	ID                  int64     `json:"id"`
	Source              SourceRef `json:"source"`
	SourceName          string    `json:"source_name,omitempty"`
	Name                string    `json:"name"`
	AgeRange            string    `json:"age_range"`
	Occupation          string    `json:"occupation"`
	Description         string    `json:"description"`
	Motivations         []string  `json:"motivations"`
	PainPoints          []string  `json:"pain_points"`
	Dreams              []string  `json:"dreams"`
	Objections          []string  `json:"objections"`
	PreferredChannels   []string  `json:"preferred_channels"`
	Keywords            []string  `json:"keywords"`
	AudiencePercentage  int       `json:"audience_percentage"`
	PriorityLevel       Priority  `json:"priority_level"`
	RecommendedStrategy string    `json:"recommended_strategy"`
	Behavior            string    `json:"behavior"`
	ItemsAnalyzed       int       `json:"items_analyzed"`
	CreatedAt           time.Time `json:"created_at"`
}
