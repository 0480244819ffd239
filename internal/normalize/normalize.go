// Package normalize turns raw, typo-ridden report text into a canonical
// corrected report. The remote correction service is tried once; any
// transport, status or payload failure falls back to the local corrector.
package normalize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rondalog/rondalog/internal/ai"
	"github.com/rondalog/rondalog/internal/model"
)

const defaultTimeout = 15 * time.Second

var ErrEmptyText = errors.New("report text is empty")

// Corrector is the remote correction contract.
type Corrector interface {
	Correct(ctx context.Context, req ai.CorrectionRequest) (*ai.CorrectionResponse, error)
}

// Outcome is the terminal state of one normalization.
type Outcome string

const (
	OutcomeRemote   Outcome = "remote"
	OutcomeFallback Outcome = "fallback"
)

// Normalizer implements remote-first correction with a deterministic local
// fallback. It holds no per-call state and is safe for concurrent use.
type Normalizer struct {
	remote  Corrector
	local   *LocalCorrector
	email   EmailTemplate
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

func WithTimeout(d time.Duration) Option {
	return func(n *Normalizer) {
		if d > 0 {
			n.timeout = d
		}
	}
}

func WithTypoTable(t *TypoTable) Option {
	return func(n *Normalizer) {
		n.local = NewLocalCorrector(t)
	}
}

func WithEmailTemplate(t EmailTemplate) Option {
	return func(n *Normalizer) {
		n.email = t
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// New builds a Normalizer. remote may be nil, in which case every call takes
// the fallback path.
func New(remote Corrector, opts ...Option) *Normalizer {
	n := &Normalizer{
		remote:  remote,
		local:   NewLocalCorrector(DefaultTypoTable()),
		email:   DefaultEmailTemplate(),
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize corrects rawText. The only error is ErrEmptyText; remote failures
// are absorbed and reported through UsedFallback.
func (n *Normalizer) Normalize(ctx context.Context, rawText string, wantsEmailVariant bool) (model.CorrectionResult, error) {
	local := n.local.Correct(rawText)
	if local == "" {
		return model.CorrectionResult{}, ErrEmptyText
	}

	corrected, email, outcome := n.attempt(ctx, rawText, wantsEmailVariant)
	if outcome == OutcomeFallback {
		corrected, email = local, ""
	}

	result := model.CorrectionResult{
		CorrectedText: corrected,
		UsedFallback:  outcome == OutcomeFallback,
	}
	if wantsEmailVariant {
		if email == "" {
			email = n.email.Render(corrected)
		}
		result.EmailVariant = email
	}
	return result, nil
}

// attempt makes the single bounded remote call and decides the outcome.
func (n *Normalizer) attempt(ctx context.Context, rawText string, wantsEmail bool) (string, string, Outcome) {
	if n.remote == nil {
		n.logger.Debug("no remote corrector configured, using local corrector")
		return "", "", OutcomeFallback
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	resp, err := n.remote.Correct(ctx, ai.CorrectionRequest{Text: rawText, WantsEmailVariant: wantsEmail})
	if err != nil {
		reason, known := ai.FailureKind(err)
		if !known {
			reason = ai.FailureNetwork
		}
		n.logger.Warn("remote correction failed, using local corrector",
			"reason", reason,
			"error", err,
			"elapsed", time.Since(start),
		)
		return "", "", OutcomeFallback
	}
	if resp == nil || strings.TrimSpace(resp.CorrectedText) == "" {
		n.logger.Warn("remote correction returned no text, using local corrector", "reason", ai.FailureMalformed)
		return "", "", OutcomeFallback
	}

	n.logger.Debug("remote correction succeeded", "elapsed", time.Since(start), "chars", len(resp.CorrectedText))
	return strings.TrimSpace(resp.CorrectedText), strings.TrimSpace(resp.EmailVariant), OutcomeRemote
}
