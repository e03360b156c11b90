package criteria

import (
	"errors"
	"fmt"
	"strings"
)

const (
	scoreSuffix = "_score"
	notesSuffix = "_notes"

	// TotalField is the aggregate score field every result carries.
	TotalField = "total_score"

	defaultTotalTolerance = 1e-6
)

// Criterion is a single bounded scoring dimension.
type Criterion struct {
	Key             string
	Name            string
	MinScore        float64
	MaxScore        float64
	Description     string
	RequiredAspects []string
}

// ScoreField returns the result field holding the numeric score.
func (c Criterion) ScoreField() string { return c.Key + scoreSuffix }

// NotesField returns the result field holding free-text notes.
func (c Criterion) NotesField() string { return c.Key + notesSuffix }

// Schema is an ordered, immutable set of criteria.
type Schema struct {
	criteria       []Criterion
	checkTotal     bool
	totalTolerance float64
}

// Option customises a Schema.
type Option func(*Schema)

// WithTotalCheck makes Validate reject results whose total_score differs from the sum of
// criterion scores by more than tolerance. A non-positive tolerance uses a tight default.
func WithTotalCheck(tolerance float64) Option {
	return func(s *Schema) {
		if tolerance <= 0 {
			tolerance = defaultTotalTolerance
		}
		s.checkTotal = true
		s.totalTolerance = tolerance
	}
}

// New builds a schema in declaration order.
func New(list []Criterion, opts ...Option) (*Schema, error) {
	if len(list) == 0 {
		return nil, errors.New("at least one criterion is required")
	}

	seen := make(map[string]struct{}, len(list))
	criteria := make([]Criterion, 0, len(list))

	for i, c := range list {
		c.Key = strings.TrimSpace(c.Key)
		if c.Key == "" {
			return nil, fmt.Errorf("criterion #%d: key is required", i+1)
		}
		if _, dup := seen[c.Key]; dup {
			return nil, fmt.Errorf("criterion %q: duplicate key", c.Key)
		}
		if c.MinScore > c.MaxScore {
			return nil, fmt.Errorf("criterion %q: min score %s is greater than max score %s",
				c.Key, formatNumber(c.MinScore), formatNumber(c.MaxScore))
		}
		if strings.TrimSpace(c.Name) == "" {
			c.Name = c.Key
		}
		seen[c.Key] = struct{}{}
		c.RequiredAspects = append([]string(nil), c.RequiredAspects...)
		criteria = append(criteria, c)
	}

	s := &Schema{criteria: criteria}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Default returns the schema the scorer ships with.
func Default(opts ...Option) *Schema {
	s, err := New([]Criterion{
		{
			Key:             "creativity",
			Name:            "Creativity",
			MinScore:        0,
			MaxScore:        10,
			Description:     "Assessment of creativity and innovation",
			RequiredAspects: []string{"creativity", "innovation"},
		},
		{
			Key:             "experience",
			Name:            "Experience",
			MinScore:        0,
			MaxScore:        10,
			Description:     "Evaluation of years and quality of relevant experience",
			RequiredAspects: []string{"years_of_experience", "role_relevance", "achievements"},
		},
		{
			Key:             "education",
			Name:            "Education",
			MinScore:        0,
			MaxScore:        10,
			Description:     "Review of educational background and relevance",
			RequiredAspects: []string{"degree_level", "field_relevance", "certifications"},
		},
	}, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Criteria returns a copy of the declared criteria.
func (s *Schema) Criteria() []Criterion {
	out := make([]Criterion, len(s.criteria))
	copy(out, s.criteria)
	return out
}

// Len returns the number of criteria.
func (s *Schema) Len() int { return len(s.criteria) }

// ChecksTotal reports whether total_score consistency is enforced.
func (s *Schema) ChecksTotal() bool { return s.checkTotal }

// Columns returns the persisted field names for the schema in declaration order.
func (s *Schema) Columns() []string {
	cols := make([]string, 0, 2*len(s.criteria)+1)
	for _, c := range s.criteria {
		cols = append(cols, c.ScoreField(), c.NotesField())
	}
	return append(cols, TotalField)
}
