package criteria

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result is the structured data returned by the scoring service for one document.
type Result map[string]any

// Kind classifies a validation failure.
type Kind string

const (
	MissingField  Kind = "MissingField"
	OutOfRange    Kind = "OutOfRange"
	NotNumeric    Kind = "NotNumeric"
	TotalMismatch Kind = "TotalMismatch"
)

// ValidationError describes why a result does not satisfy the schema.
type ValidationError struct {
	Kind  Kind
	Field string
	Value any
	Min   float64
	Max   float64
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("missing required score: %s", e.Field)
	case OutOfRange:
		return fmt.Sprintf("score %s=%v must be between %s and %s",
			e.Field, e.Value, formatNumber(e.Min), formatNumber(e.Max))
	case NotNumeric:
		return fmt.Sprintf("score %s is not numeric: %v", e.Field, e.Value)
	case TotalMismatch:
		return fmt.Sprintf("%s=%v does not match the sum of scores %s", e.Field, e.Value, formatNumber(e.Min))
	default:
		return fmt.Sprintf("invalid field %s", e.Field)
	}
}

// CriterionScore is the validated score of one criterion.
type CriterionScore struct {
	Key   string
	Score float64
	Notes string
}

// Assessment is the typed view of a validated result.
type Assessment struct {
	Scores []CriterionScore
	// Total is nil when the service did not report total_score.
	Total *float64
}

// Sum adds up the criterion scores.
func (a *Assessment) Sum() float64 {
	var sum float64
	for _, s := range a.Scores {
		sum += s.Score
	}
	return sum
}

// Validate checks every declared criterion against the result in declaration order.
// It never modifies the result.
func (s *Schema) Validate(result Result) error {
	_, err := s.Assess(result)
	return err
}

// Assess validates the result and returns its typed view.
func (s *Schema) Assess(result Result) (*Assessment, error) {
	assessment := &Assessment{Scores: make([]CriterionScore, 0, len(s.criteria))}

	for _, c := range s.criteria {
		field := c.ScoreField()
		raw, ok := result[field]
		if !ok || raw == nil {
			return nil, &ValidationError{Kind: MissingField, Field: field, Min: c.MinScore, Max: c.MaxScore}
		}

		score, ok := Number(raw)
		if !ok {
			return nil, &ValidationError{Kind: NotNumeric, Field: field, Value: raw, Min: c.MinScore, Max: c.MaxScore}
		}

		if math.IsNaN(score) || score < c.MinScore || score > c.MaxScore {
			return nil, &ValidationError{Kind: OutOfRange, Field: field, Value: raw, Min: c.MinScore, Max: c.MaxScore}
		}

		assessment.Scores = append(assessment.Scores, CriterionScore{
			Key:   c.Key,
			Score: score,
			Notes: Text(result[c.NotesField()]),
		})
	}

	if raw, ok := result[TotalField]; ok && raw != nil {
		if total, ok := Number(raw); ok {
			assessment.Total = &total
		}
	}

	if s.checkTotal {
		sum := assessment.Sum()
		if assessment.Total == nil || math.Abs(*assessment.Total-sum) > s.totalTolerance {
			return nil, &ValidationError{Kind: TotalMismatch, Field: TotalField, Value: result[TotalField], Min: sum, Max: sum}
		}
	}

	return assessment, nil
}

// Number converts JSON-decoded numeric values, including numeric strings, to float64.
// Literals beyond the float64 range convert to ±Inf.
func Number(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		return parseFloat(val.String())
	case string:
		return parseFloat(strings.TrimSpace(val))
	default:
		return 0, false
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// Text renders a result value as a single string.
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return formatNumber(val)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
