package gemini

import (
	"context"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/cv-scorer/internal/ai"
	"github.com/spigell/cv-scorer/internal/criteria"
	"github.com/spigell/cv-scorer/internal/logger"
	"github.com/spigell/cv-scorer/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string, temperature float64) (string, error)
	Model() string
}

// Scorer implements ai.Scorer on top of a Gemini generator.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

const defaultMaxLogLength = 200

func NewScorer(generator contentGenerator, maxLogLength int, log *zap.Logger) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		generator: generator,
		logger:    logger.WithCommonFields(log, ai.ProviderGemini, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// New wires a Generator and Scorer from settings.
func New(ctx context.Context, settings ai.Settings, log *zap.Logger) (*Scorer, error) {
	generator, err := NewGenerator(ctx, settings.APIKey, settings.Model, settings.MaxRetries, settings.MaxTokens, log)
	if err != nil {
		return nil, err
	}
	return NewScorer(generator, settings.MaxLogLen, log), nil
}

func (s *Scorer) Score(ctx context.Context, req ai.Request) (criteria.Result, error) {
	system, user := ai.BuildMessages(req)

	s.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(user)),
		zap.String("prompt_preview", utils.TruncateForLog(user, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, system, user, req.Temperature)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &ai.ServiceError{Provider: ai.ProviderGemini, Err: err}
	}

	s.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	return ai.ParseResult(raw)
}

var _ ai.Scorer = (*Scorer)(nil)
