package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"trade-memory/internal/domain"
	"trade-memory/internal/metrics"
)

// GeneratorFunc is an external text generator: given a model name and a
// prompt it returns narrative text.
type GeneratorFunc func(ctx context.Context, model, prompt string) (string, error)

// ErrEmptyOutput is returned when the generator produced only whitespace.
var ErrEmptyOutput = errors.New("generator returned empty text")

// Narrator produces reflection reports.
type Narrator struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewNarrator creates a narrator. A nil logger disables logging.
func NewNarrator(cfg Config, logger *zap.Logger) *Narrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Narrator{
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (n *Narrator) WithClock(now func() time.Time) *Narrator {
	n.now = now
	return n
}

// GenerateReport builds the report for s. With a nil gen the rule-based
// template is used. Otherwise gen is called once; an error, panic, timeout,
// empty reply or a reply failing Check falls back to the template and the
// reason is recorded on the report. GenerateReport never fails.
func (n *Narrator) GenerateReport(ctx context.Context, s *metrics.PeriodSummary, gen GeneratorFunc) *domain.ReflectionReport {
	report := &domain.ReflectionReport{
		Period:      s.Period,
		Metrics:     s.Overall,
		GeneratedAt: n.now(),
	}

	if gen == nil {
		report.Narrative = RenderRuleBased(s, n.cfg)
		report.Source = domain.SourceTemplate
		return report
	}

	text, err := n.callGenerator(ctx, gen, BuildPrompt(s, n.cfg))
	if err == nil {
		err = Check(text, s.Period)
		if err != nil {
			err = fmt.Errorf("generator output failed validation: %w", err)
		}
	} else {
		err = fmt.Errorf("generator failed: %w", err)
	}

	if err != nil {
		n.logger.Warn("falling back to rule-based report",
			zap.String("period", s.Period.ID()),
			zap.String("model", n.cfg.Model),
			zap.Error(err),
		)
		report.Narrative = RenderRuleBased(s, n.cfg)
		report.Source = domain.SourceTemplate
		report.UsedFallback = true
		report.FallbackReason = err.Error()
		return report
	}

	report.Narrative = text
	report.Source = domain.SourceGenerator
	report.Model = n.cfg.Model
	return report
}

type generatorResult struct {
	text string
	err  error
}

// callGenerator runs gen once under the configured timeout. A generator that
// ignores its context is abandoned when the deadline passes.
func (n *Narrator) callGenerator(ctx context.Context, gen GeneratorFunc, prompt string) (string, error) {
	if n.cfg.GeneratorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.GeneratorTimeout)
		defer cancel()
	}

	done := make(chan generatorResult, 1)
	go func() {
		var res generatorResult
		defer func() {
			if r := recover(); r != nil {
				res = generatorResult{err: fmt.Errorf("generator panicked: %v", r)}
			}
			done <- res
		}()
		res.text, res.err = gen(ctx, n.cfg.Model, prompt)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		if strings.TrimSpace(res.text) == "" {
			return "", ErrEmptyOutput
		}
		return res.text, nil
	}
}
