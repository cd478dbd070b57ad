package models

import "time"

type AngleFocus string

const (
	FocusPain           AngleFocus = "pain"
	FocusDream          AngleFocus = "dream"
	FocusObjection      AngleFocus = "objection"
	FocusUrgency        AngleFocus = "urgency"
	FocusSocialProof    AngleFocus = "social_proof"
	FocusTransformation AngleFocus = "transformation"
	FocusGuarantee      AngleFocus = "guarantee"
	FocusExclusivity    AngleFocus = "exclusivity"
)

var AngleFocuses = []AngleFocus{
	FocusPain, FocusDream, FocusObjection, FocusUrgency,
	FocusSocialProof, FocusTransformation, FocusGuarantee, FocusExclusivity,
}

type AngleContentType string

const (
	ContentAd          AngleContentType = "ad"
	ContentLanding     AngleContentType = "landing"
	ContentEmail       AngleContentType = "email"
	ContentSocialMedia AngleContentType = "social_media"
)

var AngleContentTypes = []AngleContentType{ContentAd, ContentLanding, ContentEmail, ContentSocialMedia}

// SalesAngle is one persuasive angle derived from a source's audience
// research. Focus and ContentType are empty when the model left them out.
type SalesAngle struct {
	ID          int64            `json:"id"`
	Source      SourceRef        `json:"source"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	CopyExample string           `json:"copy_example"`
	Focus       AngleFocus       `json:"focus,omitempty"`
	ContentType AngleContentType `json:"content_type,omitempty"`
	Position    int              `json:"position"`
	CreatedAt   time.Time        `json:"created_at"`
}
