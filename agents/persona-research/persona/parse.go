package persona

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"persona-stack/internal/models"
	"persona-stack/shared/ai"
)

// Accepted spellings per canonical field, first match wins. Models answer
// with English keys or with the Spanish keys of older prompts.
var fieldAliases = map[string][]string{
	"name":        {"name", "nombre"},
	"age":         {"age_range", "age", "edad"},
	"occupation":  {"occupation", "ocupacion", "ocupación"},
	"description": {"description", "descripcion", "descripción"},
	"motivations": {"motivations", "motivaciones"},
	"pain_points": {"pain_points", "painPoints", "dolores"},
	"dreams":      {"dreams", "suenos", "sueños"},
	"objections":  {"objections", "objeciones"},
	"channels":    {"preferred_channels", "channels", "canales_preferidos", "canales"},
	"keywords":    {"keywords", "keywords_clave"},
	"audience":    {"audience_percentage", "porcentaje_audiencia"},
	"priority":    {"priority_level", "priority", "nivel_prioridad"},
	"strategy":    {"recommended_strategy", "estrategia_recomendada"},
	"behavior":    {"behavior", "behaviour", "comportamiento"},
}

var priorityAliases = map[string]models.Priority{
	"high":   models.PriorityHigh,
	"alta":   models.PriorityHigh,
	"alto":   models.PriorityHigh,
	"medium": models.PriorityMedium,
	"media":  models.PriorityMedium,
	"medio":  models.PriorityMedium,
	"low":    models.PriorityLow,
	"baja":   models.PriorityLow,
	"bajo":   models.PriorityLow,
}

// ParsePersonas reads either {"personas": [...]} or a bare array.
func ParsePersonas(content string) ([]*models.BuyerPersona, error) {
	var raw any
	if err := ai.DecodeJSON(content, &raw); err != nil {
		return nil, err
	}

	var list []any
	switch v := raw.(type) {
	case map[string]any:
		l, ok := v["personas"].([]any)
		if !ok {
			return nil, &ai.ParseError{Raw: content, Err: errors.New(`response has no "personas" array`)}
		}
		list = l
	case []any:
		list = v
	default:
		return nil, &ai.ParseError{Raw: content, Err: errors.New("response is not a JSON object or array")}
	}
	if len(list) == 0 {
		return nil, &ai.ParseError{Raw: content, Err: errors.New("response contains no personas")}
	}

	personas := make([]*models.BuyerPersona, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &ai.ParseError{Raw: content, Err: fmt.Errorf("persona %d is not an object", i)}
		}
		personas = append(personas, normalize(m))
	}
	return personas, nil
}

func normalize(m map[string]any) *models.BuyerPersona {
	p := &models.BuyerPersona{
		Name:                text(lookup(m, "name")),
		AgeRange:            text(lookup(m, "age")),
		Occupation:          text(lookup(m, "occupation")),
		Description:         text(lookup(m, "description")),
		Motivations:         list(lookup(m, "motivations")),
		PainPoints:          list(lookup(m, "pain_points")),
		Dreams:              list(lookup(m, "dreams")),
		Objections:          list(lookup(m, "objections")),
		PreferredChannels:   list(lookup(m, "channels")),
		Keywords:            list(lookup(m, "keywords")),
		AudiencePercentage:  percentage(lookup(m, "audience")),
		PriorityLevel:       models.PriorityMedium,
		RecommendedStrategy: text(lookup(m, "strategy")),
		Behavior:            text(lookup(m, "behavior")),
	}
	if v, ok := priorityAliases[strings.ToLower(text(lookup(m, "priority")))]; ok {
		p.PriorityLevel = v
	}
	return p
}

func lookup(m map[string]any, field string) any {
	for _, key := range fieldAliases[field] {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

func list(v any) []string {
	out := []string{}
	switch l := v.(type) {
	case []any:
		for _, item := range l {
			if s := text(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(l, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func percentage(v any) int {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "%")), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	return int(math.Max(0, math.Min(100, math.Round(f))))
}
