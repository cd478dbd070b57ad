package angles

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"persona-stack/internal/models"
)

const (
	digestListLimit   = 10
	digestKeywords    = 20
	objectionRunes    = 150
	personaFieldLimit = 3
)

const systemPrompt = "You are an expert copywriter and direct-response marketing strategist. " +
	"Your job is to create persuasive, effective sales angles grounded in real audience research."

type count struct {
	label string
	n     int
}

// research is the condensed view of the analyses placed in the prompt.
type research struct {
	categories []count
	sentiments []count
	painPoints []string
	dreams     []string
	objections []string
	keywords   []string
}

func digest(analyses []*models.AnalysisRecord) research {
	var r research
	categories := map[string]int{}
	sentiments := map[string]int{}
	keywords := map[string]int{}
	var categoryOrder, sentimentOrder, keywordOrder []string

	tally := func(m map[string]int, order *[]string, label string) {
		if _, ok := m[label]; !ok {
			*order = append(*order, label)
		}
		m[label]++
	}

	for _, a := range analyses {
		tally(categories, &categoryOrder, string(a.Category))
		tally(sentiments, &sentimentOrder, string(a.Sentiment))
		if v := strings.TrimSpace(a.Insights.PainPoint); v != "" {
			r.painPoints = appendCapped(r.painPoints, v)
		}
		if v := strings.TrimSpace(a.Insights.Opportunity); v != "" {
			r.dreams = appendCapped(r.dreams, v)
		}
		if a.Category == models.CategoryObjection && strings.TrimSpace(a.Analysis) != "" {
			r.objections = appendCapped(r.objections, truncate(a.Analysis, objectionRunes))
		}
		for _, k := range a.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				tally(keywords, &keywordOrder, k)
			}
		}
	}

	r.categories = counts(categories, categoryOrder)
	r.sentiments = counts(sentiments, sentimentOrder)
	sort.SliceStable(keywordOrder, func(i, j int) bool {
		return keywords[keywordOrder[i]] > keywords[keywordOrder[j]]
	})
	if len(keywordOrder) > digestKeywords {
		keywordOrder = keywordOrder[:digestKeywords]
	}
	r.keywords = keywordOrder
	return r
}

func buildPrompt(source models.Source, product *models.Product, r research, personas []*models.BuyerPersona, n int) string {
	var b strings.Builder

	origin := "YouTube comments"
	if source.Ref().Type == models.SourceSurvey {
		origin = "survey responses"
	}
	fmt.Fprintf(&b, "Based on the real analysis of %s from %q, generate %d UNIQUE and persuasive SALES ANGLES for ad copy and marketing content.\n\n",
		origin, source.DisplayName(), n)

	if product != nil {
		b.WriteString("PRODUCT/SERVICE:\n")
		fmt.Fprintf(&b, "Name: %s\n", product.Name)
		fmt.Fprintf(&b, "Description: %s\n", product.Description)
		fmt.Fprintf(&b, "Value proposition: %s\n\n", product.ValueProposition)
	}

	if len(personas) > 0 {
		b.WriteString("IDENTIFIED BUYER PERSONAS:\n")
		for i, p := range personas {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, p.Name, p.Description)
			fmt.Fprintf(&b, "   - Motivations: %s\n", strings.Join(head(p.Motivations, personaFieldLimit), ", "))
			fmt.Fprintf(&b, "   - Pain points: %s\n", strings.Join(head(p.PainPoints, personaFieldLimit), ", "))
			fmt.Fprintf(&b, "   - Objections: %s\n", strings.Join(head(p.Objections, personaFieldLimit), ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("AUDIENCE ANALYSIS DATA:\n\n")
	writeCounts(&b, "Distribution by category", r.categories)
	writeCounts(&b, "Distribution by sentiment", r.sentiments)
	writeList(&b, "MAIN PAIN POINTS DETECTED", r.painPoints)
	writeList(&b, "MAIN ASPIRATIONS/DREAMS", r.dreams)
	writeList(&b, "MAIN OBJECTIONS", r.objections)
	writeList(&b, "MOST FREQUENT KEYWORDS", r.keywords)

	focuses := make([]string, len(models.AngleFocuses))
	for i, f := range models.AngleFocuses {
		focuses[i] = string(f)
	}
	kinds := make([]string, len(models.AngleContentTypes))
	for i, k := range models.AngleContentTypes {
		kinds[i] = string(k)
	}

	fmt.Fprintf(&b, `---

INSTRUCTIONS:
Generate %d sales angles that are UNIQUE and DIFFERENT from each other. Each angle must:
1. Be specific and actionable.
2. Rest on real audience insights.
3. Include a ready-to-use copy example.
4. Cover different aspects: pain points, dreams, objections, urgency, social proof, etc.
5. Vary in focus and tone.

REQUIRED FORMAT (JSON):
{
  "angles": [
    {
      "title": "Short name of the angle",
      "description": "Why this angle works and which audience insight it answers (2-3 lines)",
      "copy_example": "Ready-to-use copy of 30-50 words for an ad or landing page",
      "focus": "%s",
      "content_type": "%s"
    }
  ]
}

QUALITY CRITERIA:
- Do not repeat the same focus across angles.
- Copy must be specific, not generic.
- Use the audience's keywords and language.
- Address the real pain points and objections detected.

Respond ONLY with the JSON, no extra text.`, n, strings.Join(focuses, " | "), strings.Join(kinds, " | "))

	return b.String()
}

func writeCounts(b *strings.Builder, title string, cs []count) {
	fmt.Fprintf(b, "%s:\n", title)
	for _, c := range cs {
		fmt.Fprintf(b, "- %s: %d\n", c.label, c.n)
	}
	b.WriteString("\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "%s:\n", title)
	if len(items) == 0 {
		b.WriteString("- None detected\n")
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func counts(m map[string]int, order []string) []count {
	out := make([]count, 0, len(order))
	for _, l := range order {
		out = append(out, count{label: l, n: m[l]})
	}
	return out
}

func appendCapped(list []string, v string) []string {
	if len(list) >= digestListLimit {
		return list
	}
	return append(list, v)
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
