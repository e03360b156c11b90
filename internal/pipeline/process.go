package pipeline

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-scorer/internal/ai"
	"github.com/spigell/cv-scorer/internal/criteria"
	"github.com/spigell/cv-scorer/internal/logger"
	"github.com/spigell/cv-scorer/internal/store"
)

// Outcome is the result of processing one document: either a record ready to
// persist or an item error.
type Outcome struct {
	Document   Document
	Record     *store.Record
	Assessment *criteria.Assessment
	Err        *ItemError
	Duration   time.Duration
}

// OK reports whether the document produced a record.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Record != nil
}

// ProcessOne extracts, scores and validates a single document. It never touches the store.
func (r *Runner) ProcessOne(ctx context.Context, doc Document) Outcome {
	start := time.Now()
	log := r.logger.With(logger.DocumentFields(doc.Name)...)

	fail := func(stage Stage, kind ErrorKind, err error) Outcome {
		return Outcome{
			Document: doc,
			Err:      &ItemError{Filename: doc.Name, Stage: stage, Kind: kind, Err: err},
			Duration: time.Since(start),
		}
	}

	log.Debug("extracting text")
	text, err := r.deps.Extractor.Extract(ctx, doc.Path)
	if err != nil {
		return fail(StageExtracting, extractionKind(err), err)
	}

	log.Debug("scoring document", zap.Int("text_length", len(text)))
	scoreCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	result, err := r.deps.Scorer.Score(scoreCtx, ai.Request{
		Text:         text,
		Instructions: r.instructions,
		Temperature:  r.cfg.Temperature,
	})
	cancel()
	if err != nil {
		return fail(StageScoring, scoringKind(err), err)
	}

	assessment, err := r.deps.Schema.Assess(result)
	if err != nil {
		return fail(StageValidating, validationKind(err), err)
	}

	record := buildRecord(doc.Name, r.deps.Schema.Columns(), result)
	return Outcome{
		Document:   doc,
		Record:     &record,
		Assessment: assessment,
		Duration:   time.Since(start),
	}
}

// buildRecord orders schema columns first, then any extra result fields by name.
func buildRecord(filename string, columns []string, result criteria.Result) store.Record {
	rec := store.Record{Filename: filename, Fields: make([]store.Field, 0, len(result))}

	known := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		known[col] = struct{}{}
		if v, ok := result[col]; ok {
			rec.Fields = append(rec.Fields, store.Field{Key: col, Value: criteria.Text(v)})
		}
	}

	extras := make([]string, 0)
	for key := range result {
		if _, ok := known[key]; ok || key == "" || key == store.FilenameColumn {
			continue
		}
		extras = append(extras, key)
	}
	sort.Strings(extras)

	for _, key := range extras {
		rec.Fields = append(rec.Fields, store.Field{Key: key, Value: criteria.Text(result[key])})
	}

	return rec
}
