package models

import (
	"errors"
	"time"
)

// ErrInvalidSource is returned for a source reference with an unknown type.
var ErrInvalidSource = errors.New("invalid source")

// SourceType is the discriminant of the tagged source union. Every content
// item, analysis and persona belongs to exactly one source of one type.
type SourceType string

const (
	SourceYouTube SourceType = "youtube"
	SourceSurvey  SourceType = "google_forms"
)

func (t SourceType) Valid() bool {
	return t == SourceYouTube || t == SourceSurvey
}

// SourceRef identifies a video or a survey.
type SourceRef struct {
	Type SourceType `json:"type"`
	ID   int64      `json:"id"`
}

func (r SourceRef) String() string {
	return string(r.Type) + ":" + itoa(r.ID)
}

// Source is implemented by the two parent entities a persona can belong to.
type Source interface {
	Ref() SourceRef
	DisplayName() string
	LinkedProduct() *int64
}

type Video struct {
	ID              int64     `json:"id"`
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ChannelTitle    string    `json:"channel_title"`
	PublishedAt     time.Time `json:"published_at"`
	Duration        string    `json:"duration"`
	DurationSeconds int       `json:"duration_seconds"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	CommentCount    int64     `json:"comment_count"`
	URL             string    `json:"url"`
	ProductID       *int64    `json:"product_id,omitempty"`
	IsAnalyzing     bool      `json:"is_analyzing"`
	CreatedAt       time.Time `json:"created_at"`
}

func (v *Video) Ref() SourceRef        { return SourceRef{Type: SourceYouTube, ID: v.ID} }
func (v *Video) DisplayName() string   { return v.Title }
func (v *Video) LinkedProduct() *int64 { return v.ProductID }

type Survey struct {
	ID             int64     `json:"id"`
	SpreadsheetID  string    `json:"spreadsheet_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	FormURL        string    `json:"form_url"`
	ResponsesCount int       `json:"responses_count"`
	ProductID      *int64    `json:"product_id,omitempty"`
	IsAnalyzing    bool      `json:"is_analyzing"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Survey) Ref() SourceRef        { return SourceRef{Type: SourceSurvey, ID: s.ID} }
func (s *Survey) DisplayName() string   { return s.Title }
func (s *Survey) LinkedProduct() *int64 { return s.ProductID }
