// Package pipeline sequences normalization, field extraction and shift
// classification into a draft record for human review. Nothing is persisted
// here.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rondalog/rondalog/internal/extract"
	"github.com/rondalog/rondalog/internal/model"
	"github.com/rondalog/rondalog/internal/normalize"
	"github.com/rondalog/rondalog/internal/shift"
)

// ErrEmptyReport is the only total failure: there was no text to correct.
var ErrEmptyReport = errors.New("report is empty")

// Normalizer produces the corrected text. *normalize.Normalizer satisfies it.
type Normalizer interface {
	Normalize(ctx context.Context, rawText string, wantsEmailVariant bool) (model.CorrectionResult, error)
}

// ExportSource returns the raw chat-export text for a time window.
type ExportSource interface {
	Retrieve(ctx context.Context, start, end time.Time) (string, error)
}

// Pipeline is stateless between calls; the catalog is passed to each call.
type Pipeline struct {
	normalizer Normalizer
	extractor  *extract.Extractor
	now        func() time.Time
	logger     *slog.Logger
}

func New(n Normalizer, e *extract.Extractor, logger *slog.Logger) *Pipeline {
	if e == nil {
		e = extract.New(nil)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{normalizer: n, extractor: e, now: time.Now, logger: logger}
}

// Process turns one raw report into a draft record. A correction fallback and
// extraction misses are reflected in the record, not returned as errors.
func (p *Pipeline) Process(ctx context.Context, raw model.RawReport, catalog model.Catalog) (*model.DraftRecord, error) {
	correction, err := p.normalizer.Normalize(ctx, raw.Text, raw.WantsEmailVariant)
	if errors.Is(err, normalize.ErrEmptyText) {
		return nil, fmt.Errorf("%w: %w", ErrEmptyReport, err)
	}
	if err != nil {
		return nil, fmt.Errorf("normalizing report: %w", err)
	}

	fields := p.extractor.Extract(correction.CorrectedText, catalog)
	named := fields.ShiftCode
	period := classify(&fields)
	if named != nil && (fields.ShiftCode == nil || *fields.ShiftCode != *named) {
		p.logger.Warn("shift label contradicts report time",
			"label", *named,
			"time", fields.Time.String(),
		)
	}

	source := raw.Source
	if source == "" {
		source = model.SourceManual
	}
	rec := &model.DraftRecord{
		ID:         uuid.NewString(),
		Source:     source,
		ReceivedAt: p.now(),
		RawText:    raw.Text,
		Correction: correction,
		Fields:     fields,
		Period:     period,
		Missing:    fields.MissingFields(),
	}

	p.logger.Info("report processed",
		"id", rec.ID,
		"source", rec.Source,
		"fallback", correction.UsedFallback,
		"missing", rec.Missing,
	)
	return rec, nil
}

// ProcessShift retrieves the chat export for one shift of day d and processes
// it as a chat_export report.
func (p *Pipeline) ProcessShift(ctx context.Context, src ExportSource, d model.Date, code model.ShiftCode, loc *time.Location, catalog model.Catalog) (*model.DraftRecord, error) {
	window, err := shift.WindowFor(d, code, loc)
	if err != nil {
		return nil, err
	}
	text, err := src.Retrieve(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("retrieving export for %s: %w", window, err)
	}
	p.logger.Debug("export retrieved", "window", window.String(), "bytes", len(text))
	return p.Process(ctx, model.RawReport{Text: text, Source: model.SourceChatExport}, catalog)
}

// Refresh recomputes the period and the missing list after a reviewer edited
// the fields. A nil ShiftCode is derived again from date and time.
func Refresh(rec *model.DraftRecord) {
	rec.Period = classify(&rec.Fields)
	rec.Missing = rec.Fields.MissingFields()
}

// classify derives the period from the extracted time, and the roster code
// from date and time. A code named in the text is kept only while the time
// agrees with it: with a date the classified code replaces it, without one a
// contradicting label is cleared so the draft lists the shift as missing.
func classify(f *model.ExtractedFields) *model.Period {
	var period *model.Period
	if f.Time != nil {
		pd := shift.Classify(*f.Time)
		period = &pd
		switch {
		case f.Date != nil:
			code := shift.ClassifyPatrol(*f.Date, *f.Time)
			f.ShiftCode = &code
		case f.ShiftCode != nil:
			if w, err := shift.Lookup(*f.ShiftCode); err != nil || w.Period != pd {
				f.ShiftCode = nil
			}
		}
	}
	if period == nil && f.ShiftCode != nil {
		if w, err := shift.Lookup(*f.ShiftCode); err == nil {
			pd := w.Period
			period = &pd
		}
	}
	return period
}
