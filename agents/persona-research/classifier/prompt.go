package classifier

import (
	"fmt"
	"strings"

	"persona-stack/internal/models"
)

const systemPrompt = `You are an expert in buyer persona and customer research.
Your job is to analyze audience comments and survey answers to surface useful insights.

When business context is provided (product, audience, goals), analyze the text in relation to that specific context.

Analysis categories:
1. need: what the person needs or is looking for
2. pain: problems, frustrations, complaints
3. dream: aspirations, desires, goals
4. objection: reasons not to buy, doubts, concerns
5. question: specific questions about the product or service
6. positive_experience / negative_experience: experiences with similar products
7. suggestion: improvement ideas or feature requests
Use "other" when none applies.

Rate relevance from 1 to 10: how useful is the text for understanding the buyer persona of this product, and does it reveal actionable information?
Set is_relevant to true only when the text carries valuable information for the given business context.
Extract keywords related to the product and its target audience.
Always answer with valid JSON only.`

const responseShape = `Respond ONLY with JSON using exactly this structure:
{
  "category": "need|pain|dream|objection|question|positive_experience|negative_experience|suggestion|other",
  "sentiment": "positive|negative|neutral",
  "relevance_score": 1-10,
  "is_relevant": true|false,
  "keywords": ["keyword1", "keyword2"],
  "insights": {
    "buyer_insight": "what this reveals about the buyer persona for this product",
    "pain_point": "specific pain point related to the product or audience",
    "opportunity": "specific business opportunity in this context"
  },
  "analysis": "analysis of the text in relation to the product and audience"
}
Pick exactly one category value.`

const singleCategoryNote = `

Your previous answer listed several categories. The "category" field must contain exactly ONE of the allowed values, with no "|" separators.`

func buildPrompt(item *models.ContentItem, product *models.Product) string {
	var b strings.Builder

	if ctx := businessContext(product); ctx != "" {
		b.WriteString(ctx)
	}

	switch item.Source.Type {
	case models.SourceSurvey:
		b.WriteString("Analyze the following survey response:\n\n")
		if item.Author != "" {
			fmt.Fprintf(&b, "Respondent: %s\n", item.Author)
		}
		fmt.Fprintf(&b, "Response:\n%s\n\n", item.Text())
	default:
		b.WriteString("Analyze the following YouTube comment:\n\n")
		fmt.Fprintf(&b, "Author: %s\n", item.Author)
		fmt.Fprintf(&b, "Comment: %s\n", item.Text())
		fmt.Fprintf(&b, "Likes: %d\n", item.LikeCount)
		if item.ReplyCount > 0 {
			fmt.Fprintf(&b, "Replies: %d\n", item.ReplyCount)
		}
		b.WriteString("\n")
	}

	b.WriteString(responseShape)
	return b.String()
}

func businessContext(product *models.Product) string {
	if product == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("--- BUSINESS CONTEXT ---\n")
	field := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	field("Product/Service", product.Name)
	field("Description", product.Description)
	field("Target audience", product.TargetAudience)
	field("Known pain points", product.PainPoints)
	field("Key benefits", product.KeyBenefits)
	b.WriteString("--- END CONTEXT ---\n\n")
	return b.String()
}
