package classifier

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"persona-stack/internal/models"
	"persona-stack/shared/ai"
)

const (
	minScore     = 1
	maxScore     = 10
	defaultScore = 5
)

type parsed struct {
	record        models.AnalysisRecord
	rawCategory   string
	multiCategory bool
}

var categoryAliases = map[string]models.Category{
	"need":                 models.CategoryNeed,
	"needs":                models.CategoryNeed,
	"necesidad":            models.CategoryNeed,
	"necesidades":          models.CategoryNeed,
	"pain":                 models.CategoryPain,
	"pains":                models.CategoryPain,
	"pain_point":           models.CategoryPain,
	"dolor":                models.CategoryPain,
	"dolores":              models.CategoryPain,
	"dream":                models.CategoryDream,
	"dreams":               models.CategoryDream,
	"sueño":                models.CategoryDream,
	"sueños":               models.CategoryDream,
	"sueno":                models.CategoryDream,
	"suenos":               models.CategoryDream,
	"objection":            models.CategoryObjection,
	"objections":           models.CategoryObjection,
	"objecion":             models.CategoryObjection,
	"objeción":             models.CategoryObjection,
	"objeciones":           models.CategoryObjection,
	"question":             models.CategoryQuestion,
	"questions":            models.CategoryQuestion,
	"pregunta":             models.CategoryQuestion,
	"preguntas":            models.CategoryQuestion,
	"positive_experience":  models.CategoryPositiveExperience,
	"experiencia_positiva": models.CategoryPositiveExperience,
	"negative_experience":  models.CategoryNegativeExperience,
	"experiencia_negativa": models.CategoryNegativeExperience,
	"suggestion":           models.CategorySuggestion,
	"suggestions":          models.CategorySuggestion,
	"sugerencia":           models.CategorySuggestion,
	"sugerencias":          models.CategorySuggestion,
	"other":                models.CategoryOther,
	"otro":                 models.CategoryOther,
	"otros":                models.CategoryOther,
}

var sentimentAliases = map[string]models.Sentiment{
	"positive": models.SentimentPositive,
	"positivo": models.SentimentPositive,
	"positiva": models.SentimentPositive,
	"negative": models.SentimentNegative,
	"negativo": models.SentimentNegative,
	"negativa": models.SentimentNegative,
	"neutral":  models.SentimentNeutral,
	"neutro":   models.SentimentNeutral,
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.Join(strings.Fields(s), "_")
}

// NormalizeCategory maps English or Spanish labels onto the category enum.
func NormalizeCategory(s string) models.Category {
	if c, ok := categoryAliases[normalizeKey(s)]; ok {
		return c
	}
	return models.CategoryOther
}

// NormalizeSentiment maps English or Spanish labels onto the sentiment enum.
func NormalizeSentiment(s string) models.Sentiment {
	if v, ok := sentimentAliases[normalizeKey(s)]; ok {
		return v
	}
	return models.SentimentNeutral
}

// ClampScore keeps a relevance score inside [1,10].
func ClampScore(n int) int {
	if n < minScore {
		return minScore
	}
	if n > maxScore {
		return maxScore
	}
	return n
}

// parseResponse decodes a model answer. Missing fields take defaults; only an
// undecodable payload is an error.
func parseResponse(content string) (*parsed, error) {
	var raw map[string]any
	if err := ai.DecodeJSON(content, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, &ai.ParseError{Raw: content, Err: fmt.Errorf("expected a JSON object")}
	}

	p := &parsed{
		record: models.AnalysisRecord{
			Category:       models.CategoryOther,
			Sentiment:      models.SentimentNeutral,
			RelevanceScore: defaultScore,
			Keywords:       []string{},
		},
	}

	if v, ok := raw["category"].(string); ok {
		p.rawCategory = v
		if strings.Contains(v, "|") {
			p.multiCategory = true
		} else {
			p.record.Category = NormalizeCategory(v)
		}
	}
	if v, ok := raw["sentiment"].(string); ok {
		p.record.Sentiment = NormalizeSentiment(v)
	}
	if n, ok := toInt(raw["relevance_score"]); ok {
		p.record.RelevanceScore = ClampScore(n)
	}
	p.record.IsRelevant = toBool(raw["is_relevant"])
	p.record.Keywords = toStrings(raw["keywords"])
	if m, ok := raw["insights"].(map[string]any); ok {
		p.record.Insights = models.Insights{
			BuyerInsight: str(m["buyer_insight"]),
			PainPoint:    str(m["pain_point"]),
			Opportunity:  str(m["opportunity"]),
		}
	}
	p.record.Analysis = str(raw["analysis"])

	return p, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(math.Round(n)), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int(math.Round(f)), true
		}
	}
	return 0, false
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "si", "sí", "1":
			return true
		}
	case float64:
		return b != 0
	}
	return false
}

func toStrings(v any) []string {
	out := []string{}
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if s := strings.TrimSpace(str(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(list, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
