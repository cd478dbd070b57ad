package copywriter

import (
	"fmt"
	"strings"

	"persona-stack/internal/models"
)

const systemPrompt = "You are an expert copywriter specialized in digital marketing and direct-response advertising. " +
	"You write copy that connects emotionally with the audience and converts."

var typeLabels = map[models.CopyType]string{
	models.CopyFacebookAd:    "Facebook Ad",
	models.CopyGoogleAd:      "Google Ad",
	models.CopyLandingHero:   "Landing Hero",
	models.CopyEmailSubject:  "Email Subject",
	models.CopyEmailBody:     "Email Body",
	models.CopyInstagramPost: "Instagram Post",
	models.CopyLinkedInPost:  "LinkedIn Post",
	models.CopyTwitterThread: "Twitter Thread",
}

// TypeLabel is the human name of a copy type.
func TypeLabel(t models.CopyType) string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

var objectives = map[string]string{
	"traffic":     "drive traffic to the website",
	"conversions": "drive conversions and sales",
	"leads":       "capture leads and sign-ups",
	"awareness":   "grow brand awareness",
	"engagement":  "drive interaction and engagement",
}

var tones = map[string]string{
	"professional":  "professional and trustworthy",
	"casual":        "casual, friendly and close",
	"urgent":        "urgent and direct with a sense of immediacy",
	"inspirational": "inspirational and motivating",
	"educational":   "educational and informative",
	"emotional":     "emotional, connecting with feelings",
}

// instructions describes how each copy type maps onto the variation fields.
var instructions = map[models.CopyType]string{
	models.CopyFacebookAd: `Write a Facebook/Instagram ad.
- headline: short headline, at most 27 characters
- subheadline: long headline, at most 60 characters
- body: long primary text, 400 to 700 characters, short paragraphs separated by line breaks
- cta: call to action button text
- extras.short_text: short primary text, at most 125 characters
- extras.description: headline description, at most 60 characters`,
	models.CopyGoogleAd: `Write a Google search ad.
- headline: pain point headline, at most 30 characters
- subheadline: solution headline, at most 30 characters
- body: description expanding the benefit and answering the main objection, at most 90 characters
- cta: description with a call to action and urgency, at most 90 characters
- extras.headline_3: desired outcome headline, at most 30 characters`,
	models.CopyLandingHero: `Write the hero section of a landing page.
- headline: H1 tied to the biggest pain point, at most 60 characters
- subheadline: H2 promising the transformation tied to their biggest dream, at most 120 characters
- body: three key benefits, one per line
- cta: primary call to action, at most 25 characters
- extras.cta_secondary: lower commitment alternative, at most 25 characters`,
	models.CopyEmailSubject: `Write email subject lines that spark curiosity using their pain points or dreams.
- headline: the subject line, at most 50 characters, emojis where they fit
- body: preview text for the subject
- extras.alternatives: four more subject lines, one per line`,
	models.CopyEmailBody: `Write a welcome/sales email in a conversational, friendly tone.
- headline: subject line
- body: the full email with opening, main pain point, solution, social proof and closing
- cta: the call to action sentence`,
	models.CopyInstagramPost: `Write an Instagram post.
- headline: hook line that stops the scroll
- body: 8 to 12 lines telling a story or sharing a valuable tip, emojis and line breaks for readability
- cta: invitation to comment, save, share or visit the bio
- extras.hashtags: 15 to 20 relevant hashtags mixing popular and niche ones`,
	models.CopyLinkedInPost: `Write a professional LinkedIn post, human and story driven.
- headline: strong first line
- body: 6 to 10 lines sharing a lesson or insight, then 3 to 5 key takeaways as a list
- cta: closing question that invites discussion`,
	models.CopyTwitterThread: `Write a Twitter/X thread of 8 to 10 tweets, each at most 280 characters.
- headline: the first tweet, a strong hook
- body: the remaining tweets separated by blank lines
- cta: the final tweet asking to repost, reply or follow`,
}

func buildPrompt(product *models.Product, focus *models.ConsolidatedPersona, opts Options) string {
	var b strings.Builder

	b.WriteString("PRODUCT:\n")
	fmt.Fprintf(&b, "- Name: %s\n", product.Name)
	fmt.Fprintf(&b, "- Description: %s\n", product.Description)
	fmt.Fprintf(&b, "- Target audience: %s\n", product.TargetAudience)
	if product.ValueProposition != "" {
		fmt.Fprintf(&b, "- Value proposition: %s\n", product.ValueProposition)
	}
	b.WriteString("\n")

	if focus != nil {
		writePersonaContext(&b, focus, product.Consolidated.TotalPersonas)
	} else {
		writeConsolidatedContext(&b, &product.Consolidated)
	}

	b.WriteString("\n")
	if opts.Objective != "" {
		fmt.Fprintf(&b, "AD OBJECTIVE: %s\n", lookup(objectives, opts.Objective))
	}
	if opts.Tone != "" {
		fmt.Fprintf(&b, "TONE: %s\n", lookup(tones, opts.Tone))
	}
	if opts.Angle != "" {
		fmt.Fprintf(&b, "MAIN SALES ANGLE: %s\n", opts.Angle)
	}

	fmt.Fprintf(&b, "\n%s\n", instructions[opts.Type])
	if opts.Variations > 1 {
		fmt.Fprintf(&b, "\nWrite %d complete and different variations, each with a slightly different approach, angle or tone.\n", opts.Variations)
	}

	b.WriteString(`
QUALITY CRITERIA:
- Original, with no generic phrases or obvious templates.
- Conversational and natural, as if written by a human expert who knows the market.
- Persuasive, using direct-response techniques such as storytelling and social proof.

RESPONSE FORMAT (JSON):
{
  "variations": [
    {
      "headline": "...",
      "subheadline": "...",
      "body": "...",
      "cta": "...",
      "extras": {"key": "value"}
    }
  ]
}

Respond ONLY with the JSON, no extra text.`)

	return b.String()
}

func writePersonaContext(b *strings.Builder, p *models.ConsolidatedPersona, total int) {
	fmt.Fprintf(b, "SELECTED BUYER PERSONA (of %d in total):\n", total)
	fmt.Fprintf(b, "- Name: %s\n", p.Name)
	fmt.Fprintf(b, "- Source: %s\n", p.SourceName)
	fmt.Fprintf(b, "- Age: %s\n", p.Age)
	fmt.Fprintf(b, "- Occupation: %s\n", p.Occupation)
	fmt.Fprintf(b, "- Description: %s\n", p.Description)

	for _, s := range []struct {
		title string
		items []string
		limit int
	}{
		{"MAIN MOTIVATIONS", p.Motivations, 5},
		{"PAIN POINTS", p.PainPoints, 5},
		{"DREAMS", p.Dreams, 5},
		{"COMMON OBJECTIONS", p.Objections, 3},
		{"KEYWORDS THEY USE", p.Keywords, 10},
		{"PREFERRED CHANNELS", p.Channels, len(p.Channels)},
	} {
		fmt.Fprintf(b, "\n%s:\n%s\n", s.title, joinList(s.items, s.limit))
	}
}

func writeConsolidatedContext(b *strings.Builder, c *models.ConsolidatedProduct) {
	fmt.Fprintf(b, "CONSOLIDATED DATA FROM %d BUYER PERSONAS:\n", c.TotalPersonas)

	b.WriteString("\nDEMOGRAPHICS:\n")
	if c.Demographics.AverageAge != nil {
		fmt.Fprintf(b, "- Average age: %d\n", *c.Demographics.AverageAge)
	}
	if c.Demographics.AgeRange != nil {
		fmt.Fprintf(b, "- Age range: %s\n", *c.Demographics.AgeRange)
	}
	fmt.Fprintf(b, "- Main occupations: %s\n", joinList(c.Demographics.TopOccupations, len(c.Demographics.TopOccupations)))

	for _, s := range []struct {
		title  string
		counts []models.FieldCount
		limit  int
	}{
		{"MAIN MOTIVATIONS (by frequency)", c.Motivations, 10},
		{"MOST MENTIONED PAIN POINTS", c.PainPoints, 10},
		{"MOST COMMON DREAMS", c.Dreams, 10},
		{"MOST FREQUENT OBJECTIONS", c.Objections, 5},
		{"MOST RELEVANT KEYWORDS", c.Keywords, 15},
	} {
		fmt.Fprintf(b, "\n%s:\n%s\n", s.title, joinList(texts(s.counts), s.limit))
	}

	if c.YouTubeInsight != nil {
		fmt.Fprintf(b, "\nYOUTUBE INSIGHTS:\n%s\n", *c.YouTubeInsight)
	}
	if c.SurveyInsight != nil {
		fmt.Fprintf(b, "\nSURVEY INSIGHTS:\n%s\n", *c.SurveyInsight)
	}
}

func texts(counts []models.FieldCount) []string {
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Text
	}
	return out
}

func joinList(items []string, limit int) string {
	if len(items) == 0 {
		return "Not specified"
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, ", ")
}

func lookup(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}
