package pipeline

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-scorer/internal/ai"
	"github.com/spigell/cv-scorer/internal/criteria"
	"github.com/spigell/cv-scorer/internal/extract"
	"github.com/spigell/cv-scorer/internal/metrics"
	"github.com/spigell/cv-scorer/internal/store"
)

// Config holds the per-run knobs of the runner.
type Config struct {
	// Timeout bounds a single scoring call. Zero means ai.DefaultTimeout.
	Timeout     time.Duration
	Temperature float64
}

// Deps aggregates the collaborators the runner drives.
type Deps struct {
	Schema    *criteria.Schema
	Extractor extract.Extractor
	Scorer    ai.Scorer
	Store     store.Store
	Logger    *zap.Logger
	Metrics   *metrics.Recorder
}

// Runner processes pending documents one at a time.
type Runner struct {
	cfg          Config
	deps         Deps
	logger       *zap.Logger
	instructions string
}

func NewRunner(cfg Config, deps Deps) (*Runner, error) {
	switch {
	case deps.Schema == nil:
		return nil, errors.New("criteria schema is required")
	case deps.Extractor == nil:
		return nil, errors.New("text extractor is required")
	case deps.Scorer == nil:
		return nil, errors.New("scorer is required")
	case deps.Store == nil:
		return nil, errors.New("result store is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = ai.DefaultTimeout
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		cfg:          cfg,
		deps:         deps,
		logger:       logger,
		instructions: deps.Schema.Describe(),
	}, nil
}

// Instructions returns the rendered criteria block sent with every document.
func (r *Runner) Instructions() string {
	return r.instructions
}
