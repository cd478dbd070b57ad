package models

import "time"

type CopyType string

const (
	CopyFacebookAd    CopyType = "facebook_ad"
	CopyGoogleAd      CopyType = "google_ad"
	CopyLandingHero   CopyType = "landing_hero"
	CopyEmailSubject  CopyType = "email_subject"
	CopyEmailBody     CopyType = "email_body"
	CopyInstagramPost CopyType = "instagram_post"
	CopyLinkedInPost  CopyType = "linkedin_post"
	CopyTwitterThread CopyType = "twitter_thread"
)

var CopyTypes = []CopyType{
	CopyFacebookAd,
	CopyGoogleAd,
	CopyLandingHero,
	CopyEmailSubject,
	CopyEmailBody,
	CopyInstagramPost,
	CopyLinkedInPost,
	CopyTwitterThread,
}

func (t CopyType) Valid() bool {
	for _, v := range CopyTypes {
		if t == v {
			return true
		}
	}
	return false
}

type CopyVariation struct {
	Headline    string            `json:"headline"`
	Subheadline string            `json:"subheadline,omitempty"`
	Body        string            `json:"body"`
	CTA         string            `json:"cta,omitempty"`
	Extras      map[string]string `json:"extras,omitempty"`
}

type CopyGeneration struct {
	ID             int64           `json:"id"`
	ProductID      int64           `json:"product_id"`
	Type           CopyType        `json:"type"`
	Name           string          `json:"name"`
	Tone           string          `json:"tone,omitempty"`
	Objective      string          `json:"objective,omitempty"`
	Angle          string          `json:"angle,omitempty"`
	PersonaIndex   *int            `json:"persona_index,omitempty"`
	Variations     []CopyVariation `json:"variations"`
	CharacterCount int             `json:"character_count"`
	Model          string          `json:"model"`
	TokensUsed     int             `json:"tokens_used"`
	CreatedAt      time.Time       `json:"created_at"`
}
