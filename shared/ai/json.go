package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	thinkTagPattern  = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)
	codeFencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
)

// StripCodeFences returns the body of the first markdown code block, or the
// trimmed input when there is none.
func StripCodeFences(s string) string {
	if m := codeFencePattern.FindStringSubmatch(s); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// ExtractJSON finds the first balanced JSON object or array in a model response.
func ExtractJSON(response string) (string, error) {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")
	cleaned = StripCodeFences(cleaned)

	objStart := strings.IndexByte(cleaned, '{')
	arrStart := strings.IndexByte(cleaned, '[')

	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if jsonStr, ok := extractBalanced(cleaned, '{', '}'); ok {
			return jsonStr, nil
		}
	}
	if arrStart >= 0 {
		if jsonStr, ok := extractBalanced(cleaned, '[', ']'); ok {
			return jsonStr, nil
		}
	}

	if json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}
	return "", errors.New("no JSON found in response")
}

// extractBalanced returns the first structure opened by openChar with its
// matching close, skipping brackets inside strings.
func extractBalanced(s string, openChar, closeChar byte) (string, bool) {
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// DecodeJSON extracts the JSON payload from response into target. Malformed
// payloads get one sanitizing pass before a *ParseError is returned.
func DecodeJSON(response string, target any) error {
	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return &ParseError{Raw: response, Err: err}
	}

	if err := json.Unmarshal([]byte(jsonStr), target); err != nil {
		sanitized := sanitizeJSON(jsonStr)
		if sanitizedErr := json.Unmarshal([]byte(sanitized), target); sanitizedErr != nil {
			return &ParseError{Raw: response, Err: fmt.Errorf("%w (sanitized version also failed: %v)", err, sanitizedErr)}
		}
	}
	return nil
}

// sanitizeJSON escapes stray quotes inside single-line string values, the
// most common defect in model-written JSON.
func sanitizeJSON(jsonStr string) string {
	lines := strings.Split(jsonStr, "\n")
	var sanitizedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.Contains(line, ":") && strings.Contains(line, "\"") {
			colonIdx := strings.Index(line, "\":")
			if colonIdx != -1 {
				beforeColon := line[:colonIdx+2]
				afterColon := strings.TrimSpace(line[colonIdx+2:])

				if strings.HasPrefix(afterColon, "\"") {
					lastQuoteIdx := strings.LastIndex(afterColon, "\"")
					if lastQuoteIdx > 0 {
						content := afterColon[1:lastQuoteIdx]
						content = strings.ReplaceAll(content, `\"`, "\x00")
						content = strings.ReplaceAll(content, "\"", "\\\"")
						content = strings.ReplaceAll(content, "\x00", `\"`)

						remainder := afterColon[lastQuoteIdx+1:]
						line = beforeColon + " \"" + content + "\"" + remainder
					}
				}
			}
		}

		sanitizedLines = append(sanitizedLines, line)
	}

	return strings.Join(sanitizedLines, "\n")
}
