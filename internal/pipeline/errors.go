package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/cv-scorer/internal/ai"
	"github.com/spigell/cv-scorer/internal/criteria"
	"github.com/spigell/cv-scorer/internal/extract"
)

// ErrorKind classifies a per-item failure.
type ErrorKind string

const (
	UnsupportedFormat ErrorKind = "UnsupportedFormat"
	ExtractionFailed  ErrorKind = "ExtractionFailed"
	ServiceError      ErrorKind = "ServiceError"
	ServiceTimeout    ErrorKind = "ServiceTimeout"
	InvalidResponse   ErrorKind = "InvalidResponse"
	MissingField      ErrorKind = ErrorKind(criteria.MissingField)
	OutOfRange        ErrorKind = ErrorKind(criteria.OutOfRange)
	NotNumeric        ErrorKind = ErrorKind(criteria.NotNumeric)
	TotalMismatch     ErrorKind = ErrorKind(criteria.TotalMismatch)
)

// Stage is a step of the per-item state machine.
type Stage string

const (
	StagePending    Stage = "pending"
	StageExtracting Stage = "extracting"
	StageScoring    Stage = "scoring"
	StageValidating Stage = "validating"
	StagePersisted  Stage = "persisted"
	StageFailed     Stage = "failed"
)

// ItemError is a failure confined to one document. The document stays absent
// from the store so a later run retries it.
type ItemError struct {
	Filename string
	Stage    Stage
	Kind     ErrorKind
	Err      error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %s while %s: %v", e.Filename, e.Kind, e.Stage, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

func extractionKind(err error) ErrorKind {
	var unsupported *extract.UnsupportedFormatError
	if errors.As(err, &unsupported) {
		return UnsupportedFormat
	}
	return ExtractionFailed
}

func scoringKind(err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ServiceTimeout
	case errors.Is(err, ai.ErrInvalidResponse):
		return InvalidResponse
	default:
		return ServiceError
	}
}

func validationKind(err error) ErrorKind {
	var verr *criteria.ValidationError
	if errors.As(err, &verr) {
		return ErrorKind(verr.Kind)
	}
	return InvalidResponse
}
