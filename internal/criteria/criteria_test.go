package criteria

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestNewRejectsInvalidCriteria(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		list []Criterion
	}{
		{name: "empty", list: nil},
		{name: "missing key", list: []Criterion{{Name: "x", MaxScore: 1}}},
		{name: "duplicate key", list: []Criterion{{Key: "a", MaxScore: 1}, {Key: "a", MaxScore: 2}}},
		{name: "min greater than max", list: []Criterion{{Key: "a", MinScore: 5, MaxScore: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.list); err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
		})
	}
}

func TestDescribeListsFieldsInDeclarationOrder(t *testing.T) {
	out := Default().Describe()

	expectedFields := []string{
		"   - creativity_score (0-10)\n",
		"   - creativity_notes\n",
		"   - experience_score (0-10)\n",
		"   - experience_notes\n",
		"   - education_score (0-10)\n",
		"   - education_notes\n",
		"   - total_score (sum of all scores)\n",
	}

	last := -1
	for _, field := range expectedFields {
		idx := strings.Index(out, field)
		if idx == -1 {
			t.Fatalf("expected %q in instructions:\n%s", field, out)
		}
		if idx < last {
			t.Fatalf("field %q rendered out of order", field)
		}
		last = idx
	}

	if !strings.Contains(out, "- Experience: Evaluation of years and quality of relevant experience\n  Required aspects to consider:\n  * years_of_experience\n  * role_relevance\n  * achievements\n") {
		t.Fatalf("experience criterion not rendered as expected:\n%s", out)
	}

	if out != Default().Describe() {
		t.Fatalf("expected deterministic output")
	}
}

func TestDescribeFormatsFractionalRanges(t *testing.T) {
	s, err := New([]Criterion{{Key: "fit", MinScore: -1.5, MaxScore: 2.25, Description: "d"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(s.Describe(), "fit_score (-1.5-2.25)") {
		t.Fatalf("unexpected range rendering:\n%s", s.Describe())
	}
}

func validResult() Result {
	return Result{
		"creativity_score": 8.0,
		"creativity_notes": "original portfolio",
		"experience_score": 7.0,
		"experience_notes": "five years",
		"education_score":  9.0,
		"education_notes":  "MSc",
		"total_score":      24.0,
	}
}

func TestValidateBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(Result)
		kind   Kind
	}{
		{name: "upper bound inclusive", mutate: func(r Result) { r["creativity_score"] = 10.0 }},
		{name: "lower bound inclusive", mutate: func(r Result) { r["creativity_score"] = 0.0 }},
		{name: "numeric string accepted", mutate: func(r Result) { r["creativity_score"] = " 6.5 " }},
		{name: "above upper bound", mutate: func(r Result) { r["creativity_score"] = 10.0001 }, kind: OutOfRange},
		{name: "below lower bound", mutate: func(r Result) { r["creativity_score"] = -0.0001 }, kind: OutOfRange},
		{name: "overflowing literal", mutate: func(r Result) { r["creativity_score"] = "1e400" }, kind: OutOfRange},
		{name: "overflowing json number", mutate: func(r Result) { r["creativity_score"] = json.Number("-1e400") }, kind: OutOfRange},
		{name: "absent", mutate: func(r Result) { delete(r, "creativity_score") }, kind: MissingField},
		{name: "null", mutate: func(r Result) { r["education_score"] = nil }, kind: MissingField},
		{name: "not numeric", mutate: func(r Result) { r["experience_score"] = "seven" }, kind: NotNumeric},
		{name: "boolean", mutate: func(r Result) { r["experience_score"] = true }, kind: NotNumeric},
		{name: "extra fields tolerated", mutate: func(r Result) { r["summary"] = "strong"; r["flags"] = []any{"x"} }},
		{name: "total not enforced", mutate: func(r Result) { r["total_score"] = 3.0 }},
		{name: "notes not validated", mutate: func(r Result) { delete(r, "creativity_notes") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := validResult()
			tt.mutate(result)

			err := Default().Validate(result)
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("expected valid result, got %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Kind != tt.kind {
				t.Fatalf("expected kind %s, got %s", tt.kind, verr.Kind)
			}
		})
	}
}

func TestValidateReportsFirstFailingCriterion(t *testing.T) {
	result := validResult()
	delete(result, "experience_score")
	result["education_score"] = 42.0

	err := Default().Validate(result)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "experience_score" || verr.Kind != MissingField {
		t.Fatalf("unexpected error: %+v", verr)
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	result := validResult()
	result["creativity_score"] = "8"
	before := Result{}
	for k, v := range result {
		before[k] = v
	}

	if err := Default().Validate(result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(before, result) {
		t.Fatalf("result was modified: %+v", result)
	}
}

func TestValidateTotalCheck(t *testing.T) {
	schema := Default(WithTotalCheck(0.01))
	if !schema.ChecksTotal() {
		t.Fatalf("expected total check to be enabled")
	}

	if err := schema.Validate(validResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := validResult()
	result["total_score"] = 25.0

	var verr *ValidationError
	if err := schema.Validate(result); !errors.As(err, &verr) || verr.Kind != TotalMismatch {
		t.Fatalf("expected TotalMismatch, got %v", err)
	}

	delete(result, "total_score")
	if err := schema.Validate(result); !errors.As(err, &verr) || verr.Kind != TotalMismatch {
		t.Fatalf("expected TotalMismatch for missing total, got %v", err)
	}
}

func TestAssessBuildsTypedView(t *testing.T) {
	assessment, err := Default().Assess(validResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(assessment.Scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(assessment.Scores))
	}
	if assessment.Scores[1].Key != "experience" || assessment.Scores[1].Score != 7 || assessment.Scores[1].Notes != "five years" {
		t.Fatalf("unexpected experience score: %+v", assessment.Scores[1])
	}
	if assessment.Total == nil || *assessment.Total != 24 {
		t.Fatalf("unexpected total: %v", assessment.Total)
	}
	if assessment.Sum() != 24 {
		t.Fatalf("unexpected sum: %v", assessment.Sum())
	}
}

func TestColumns(t *testing.T) {
	want := []string{
		"creativity_score", "creativity_notes",
		"experience_score", "experience_notes",
		"education_score", "education_notes",
		"total_score",
	}
	if got := Default().Columns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected columns: %v", got)
	}
}

func TestDecode(t *testing.T) {
	raw := []any{
		map[string]any{
			"key":              "leadership",
			"name":             "Leadership",
			"min-score":        "1",
			"max-score":        5,
			"description":      "Team leadership",
			"required-aspects": []any{"mentoring", "ownership"},
		},
	}

	schema, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := schema.Criteria()
	if len(got) != 1 {
		t.Fatalf("expected 1 criterion, got %d", len(got))
	}
	want := Criterion{
		Key:             "leadership",
		Name:            "Leadership",
		MinScore:        1,
		MaxScore:        5,
		Description:     "Team leadership",
		RequiredAspects: []string{"mentoring", "ownership"},
	}
	if !reflect.DeepEqual(got[0], want) {
		t.Fatalf("unexpected criterion: %+v", got[0])
	}

	if _, err := Decode([]any{map[string]any{"key": "x", "unknown": 1}}); err == nil {
		t.Fatalf("expected error for unknown field")
	}

	def, err := Decode(nil)
	if err != nil || def.Len() != 3 {
		t.Fatalf("expected default schema, got %v (%v)", def, err)
	}
}
