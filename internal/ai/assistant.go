package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/cv-scorer/internal/criteria"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultTemperature = 0.7
	DefaultTimeout     = 2 * time.Minute
	DefaultMaxTokens   = 4096
)

// Request is one scoring call.
type Request struct {
	// Text is the extracted document content.
	Text string
	// Instructions is the rendered criteria block.
	Instructions string
	Temperature  float64
}

// Scorer is the structured-output scoring service.
type Scorer interface {
	Score(ctx context.Context, req Request) (criteria.Result, error)
}

// Settings is built once from configuration and handed to the provider constructors.
type Settings struct {
	Provider    string
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	MaxLogLen   int
}

// ErrService is matched by every ServiceError.
var ErrService = errors.New("scoring service error")

// ServiceError reports a failed call to the scoring service.
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func (e *ServiceError) Is(target error) bool { return target == ErrService }

// ErrInvalidResponse is matched by every InvalidResponseError.
var ErrInvalidResponse = errors.New("invalid scoring response")

// InvalidResponseError reports a reply that could not be parsed as a JSON object.
type InvalidResponseError struct {
	Raw string
	Err error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("response is not valid JSON: %v", e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

func (e *InvalidResponseError) Is(target error) bool { return target == ErrInvalidResponse }
