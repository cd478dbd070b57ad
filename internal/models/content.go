package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ContentItem is a canonical comment or survey response.
type ContentItem struct {
	ID              int64           `json:"id"`
	ExternalID      string          `json:"external_id"`
	Source          SourceRef       `json:"source"`
	Author          string          `json:"author"`
	AuthorChannelID string          `json:"author_channel_id,omitempty"`
	RawText         string          `json:"raw_text"`
	CombinedText    string          `json:"combined_text"`
	LikeCount       int64           `json:"like_count"`
	ReplyCount      int64           `json:"reply_count"`
	PublishedAt     time.Time       `json:"published_at"`
	Replies         json.RawMessage `json:"replies,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Text returns the normalized text used for analysis.
func (c *ContentItem) Text() string {
	if c.CombinedText != "" {
		return c.CombinedText
	}
	return c.RawText
}

// TextLength counts characters, not bytes.
func (c *ContentItem) TextLength() int {
	return utf8.RuneCountInString(strings.TrimSpace(c.Text()))
}

// IngestOutcome is the result of ingesting one item.
type IngestOutcome string

const (
	Imported IngestOutcome = "imported"
	Skipped  IngestOutcome = "skipped"
)

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
