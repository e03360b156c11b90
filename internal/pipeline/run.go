package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/cv-scorer/internal/logger"
)

// Summary reports what a run did.
type Summary struct {
	Processed int
	Skipped   int
	// Errors lists per-item failures in processing order.
	Errors      []ItemError
	Output      string
	NothingToDo bool
	Cancelled   bool
}

// Failed is the number of documents that ended in an item error.
func (s *Summary) Failed() int {
	return len(s.Errors)
}

// Run processes every pending document in dir, persisting each success before
// moving on. Item errors are collected; a persistence failure or cancellation
// stops the run and is returned together with the partial summary.
func (r *Runner) Run(ctx context.Context, dir string) (*Summary, error) {
	pending, err := r.EnumeratePending(dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Skipped: pending.Skipped,
		Output:  r.deps.Store.Location(),
	}
	r.deps.Metrics.Skipped(pending.Skipped)

	if pending.Empty() {
		summary.NothingToDo = true
		r.logger.Info("no new documents to process", zap.Int("skipped", summary.Skipped))
		return summary, nil
	}

	r.logger.Info("processing documents",
		zap.Int("pending", len(pending.Documents)),
		zap.Int("skipped", pending.Skipped),
	)

	for i, doc := range pending.Documents {
		if err := ctx.Err(); err != nil {
			summary.Cancelled = true
			r.logger.Warn("run cancelled", zap.Int("remaining", len(pending.Documents)-i))
			return summary, err
		}

		log := r.logger.With(logger.DocumentFields(doc.Name)...)

		outcome := r.ProcessOne(ctx, doc)
		if outcome.Err != nil {
			// The item was interrupted by shutdown rather than failing on its own.
			if err := ctx.Err(); err != nil {
				summary.Cancelled = true
				r.logger.Warn("run cancelled", zap.Int("remaining", len(pending.Documents)-i))
				return summary, err
			}

			summary.Errors = append(summary.Errors, *outcome.Err)
			r.deps.Metrics.Failed(string(outcome.Err.Kind), outcome.Duration)
			log.Warn("document failed",
				zap.String(logger.FieldStage, string(outcome.Err.Stage)),
				zap.String("kind", string(outcome.Err.Kind)),
				zap.Error(outcome.Err.Err),
			)
			continue
		}

		if err := r.deps.Store.Append(*outcome.Record); err != nil {
			log.Error("persisting record failed", zap.Error(err))
			return summary, fmt.Errorf("persist %s: %w", doc.Name, err)
		}

		summary.Processed++
		r.deps.Metrics.Processed(outcome.Duration)
		log.Info("document scored",
			zap.Float64("score_sum", outcome.Assessment.Sum()),
			zap.Duration("duration", outcome.Duration),
		)
	}

	r.logger.Info("run completed",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed()),
		zap.String("output", summary.Output),
	)

	return summary, nil
}
