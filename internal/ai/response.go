package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	_ "embed"

	"github.com/spigell/cv-scorer/internal/criteria"
)

//go:embed prompt.md
var systemTemplate string

const userTemplate = "Provide a JSON response for: Review this CV:\n\n{{CV_TEXT}}\nRemember: Return ONLY valid JSON, nothing else."

// BuildMessages wraps the request into the system and user messages sent to a chat model.
func BuildMessages(req Request) (system, user string) {
	template := systemTemplate
	if strings.TrimSpace(template) == "" {
		template = "{{INSTRUCTIONS}}"
	}
	system = strings.ReplaceAll(template, "{{INSTRUCTIONS}}", req.Instructions)
	user = strings.ReplaceAll(userTemplate, "{{CV_TEXT}}", req.Text)
	return system, user
}

// ParseResult decodes a model reply into a result, tolerating markdown code fences
// and prose around the JSON object.
func ParseResult(raw string) (criteria.Result, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, &InvalidResponseError{Raw: raw, Err: errors.New("empty response")}
	}

	result, err := decodeObject(cleaned)
	if err == nil {
		return result, nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end <= start {
		return nil, &InvalidResponseError{Raw: raw, Err: err}
	}

	result, innerErr := decodeObject(cleaned[start : end+1])
	if innerErr != nil {
		return nil, &InvalidResponseError{Raw: raw, Err: innerErr}
	}
	return result, nil
}

func decodeObject(s string) (criteria.Result, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(s)))
	decoder.UseNumber()

	var data map[string]any
	if err := decoder.Decode(&data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("response is not a JSON object")
	}
	if decoder.More() {
		return nil, errors.New("unexpected data after JSON object")
	}

	return criteria.Result(normalize(data).(map[string]any)), nil
}

// normalize turns json.Number values into float64 so results compare like plain JSON.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
