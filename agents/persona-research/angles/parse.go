package angles

import (
	"errors"
	"fmt"
	"strings"

	"persona-stack/internal/models"
	"persona-stack/shared/ai"
)

var fieldAliases = map[string][]string{
	"title":        {"title", "titulo", "título"},
	"description":  {"description", "descripcion", "descripción"},
	"copy_example": {"copy_example", "copy", "copy_ejemplo"},
	"focus":        {"focus", "enfoque"},
	"content_type": {"content_type", "tipo_contenido"},
}

var focusAliases = map[string]models.AngleFocus{
	"dolor":          models.FocusPain,
	"sueño":          models.FocusDream,
	"sueno":          models.FocusDream,
	"objecion":       models.FocusObjection,
	"objeción":       models.FocusObjection,
	"urgencia":       models.FocusUrgency,
	"prueba_social":  models.FocusSocialProof,
	"social proof":   models.FocusSocialProof,
	"transformacion": models.FocusTransformation,
	"transformación": models.FocusTransformation,
	"garantia":       models.FocusGuarantee,
	"garantía":       models.FocusGuarantee,
	"exclusividad":   models.FocusExclusivity,
}

var contentTypeAliases = map[string]models.AngleContentType{
	"anuncio":        models.ContentAd,
	"advertisement":  models.ContentAd,
	"social":         models.ContentSocialMedia,
	"social media":   models.ContentSocialMedia,
	"redes_sociales": models.ContentSocialMedia,
}

// ParseAngles reads either {"angles": [...]} or a bare array. Entries with
// neither a title nor a copy example are dropped.
func ParseAngles(content string) ([]*models.SalesAngle, error) {
	var raw any
	if err := ai.DecodeJSON(content, &raw); err != nil {
		return nil, err
	}

	var list []any
	switch v := raw.(type) {
	case map[string]any:
		l, ok := v["angles"].([]any)
		if !ok {
			return nil, &ai.ParseError{Raw: content, Err: errors.New(`response has no "angles" array`)}
		}
		list = l
	case []any:
		list = v
	default:
		return nil, &ai.ParseError{Raw: content, Err: errors.New("response is not a JSON object or array")}
	}

	angles := make([]*models.SalesAngle, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &ai.ParseError{Raw: content, Err: fmt.Errorf("angle %d is not an object", i)}
		}
		a := &models.SalesAngle{
			Title:       text(lookup(m, "title")),
			Description: text(lookup(m, "description")),
			CopyExample: text(lookup(m, "copy_example")),
			Focus:       normalizeFocus(text(lookup(m, "focus"))),
			ContentType: normalizeContentType(text(lookup(m, "content_type"))),
		}
		if a.Title == "" && a.CopyExample == "" {
			continue
		}
		if a.Title == "" {
			a.Title = fmt.Sprintf("Angle %d", len(angles)+1)
		}
		angles = append(angles, a)
	}
	if len(angles) == 0 {
		return nil, &ai.ParseError{Raw: content, Err: errors.New("response contains no sales angles")}
	}
	return angles, nil
}

// normalizeFocus maps English and Spanish labels onto the focus enum.
// Unknown labels become empty rather than guessed.
func normalizeFocus(s string) models.AngleFocus {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range models.AngleFocuses {
		if s == string(f) {
			return f
		}
	}
	if f, ok := focusAliases[s]; ok {
		return f
	}
	return ""
}

func normalizeContentType(s string) models.AngleContentType {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range models.AngleContentTypes {
		if s == string(k) {
			return k
		}
	}
	if k, ok := contentTypeAliases[s]; ok {
		return k
	}
	return ""
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
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
