package reporting

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-memory/internal/domain"
)

var generatedAt = time.Date(2026, 2, 24, 6, 0, 0, 0, time.UTC)

func newTestNarrator(cfg Config) *Narrator {
	return NewNarrator(cfg, nil).WithClock(func() time.Time { return generatedAt })
}

func TestGenerateReport_NoGenerator(t *testing.T) {
	s := summarize(domain.DailyPeriod(reportDay), mixedDay())

	r := newTestNarrator(DefaultConfig()).GenerateReport(context.Background(), s, nil)

	assert.Equal(t, domain.SourceTemplate, r.Source)
	assert.False(t, r.UsedFallback)
	assert.Empty(t, r.FallbackReason)
	assert.Empty(t, r.Model)
	assert.Equal(t, RenderRuleBased(s, DefaultConfig()), r.Narrative)
	assert.Equal(t, s.Overall, r.Metrics)
	assert.Equal(t, generatedAt, r.GeneratedAt)
}

func TestGenerateReport_NoTradesDeterministic(t *testing.T) {
	s := summarize(domain.DailyPeriod(reportDay), nil)
	n := newTestNarrator(DefaultConfig())

	first := n.GenerateReport(context.Background(), s, nil)
	second := n.GenerateReport(context.Background(), s, nil)

	assert.Equal(t, first.Narrative, second.Narrative)
	assert.Contains(t, first.Narrative, "No trades today.")
	assert.True(t, first.Metrics.InsufficientData)
	assert.Zero(t, first.Metrics.WinRate)
}

func TestGenerateReport_GeneratorAccepted(t *testing.T) {
	s := summarize(domain.DailyPeriod(reportDay), mixedDay())
	var calls int32
	var gotModel, gotPrompt string
	gen := func(_ context.Context, model, prompt string) (string, error) {
		atomic.AddInt32(&calls, 1)
		gotModel, gotPrompt = model, prompt
		return validDaily, nil
	}

	r := newTestNarrator(DefaultConfig()).GenerateReport(context.Background(), s, gen)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, DefaultModel, gotModel)
	assert.Contains(t, gotPrompt, "=== DAILY SUMMARY: 2026-02-23 ===")
	assert.Equal(t, domain.SourceGenerator, r.Source)
	assert.False(t, r.UsedFallback)
	assert.Equal(t, validDaily, r.Narrative)
	assert.Equal(t, DefaultModel, r.Model)
}

func TestGenerateReport_ValidationFailureFallsBack(t *testing.T) {
	s := summarize(domain.DailyPeriod(reportDay), mixedDay())
	gen := func(context.Context, string, string) (string, error) {
		return strings.Replace(validDaily, "PERFORMANCE:", "", 1), nil
	}

	r := newTestNarrator(DefaultConfig()).GenerateReport(context.Background(), s, gen)

	assert.Equal(t, domain.SourceTemplate, r.Source)
	assert.True(t, r.UsedFallback)
	assert.Contains(t, r.FallbackReason, "validation")
	assert.Contains(t, r.FallbackReason, RulePerformance)
	assert.Equal(t, RenderRuleBased(s, DefaultConfig()), r.Narrative)
}

func TestGenerateReport_GeneratorFailures(t *testing.T) {
	tests := []struct {
		name   string
		gen    GeneratorFunc
		reason string
	}{
		{
			name:   "error",
			gen:    func(context.Context, string, string) (string, error) { return "", errors.New("connection refused") },
			reason: "connection refused",
		},
		{
			name:   "empty",
			gen:    func(context.Context, string, string) (string, error) { return " \n\t", nil },
			reason: ErrEmptyOutput.Error(),
		},
		{
			name:   "panic",
			gen:    func(context.Context, string, string) (string, error) { panic("malformed response") },
			reason: "panicked: malformed response",
		},
		{
			name:   "stale period",
			gen:    func(context.Context, string, string) (string, error) { return strings.ReplaceAll(validDaily, "2026-02-23", "2026-02-22"), nil },
			reason: RuleHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := summarize(domain.DailyPeriod(reportDay), mixedDay())

			r := newTestNarrator(DefaultConfig()).GenerateReport(context.Background(), s, tt.gen)

			require.NotNil(t, r)
			assert.True(t, r.UsedFallback)
			assert.Equal(t, domain.SourceTemplate, r.Source)
			assert.Contains(t, r.FallbackReason, tt.reason)
			assert.True(t, Validate(r.Narrative, s.Period))
		})
	}
}

func TestGenerateReport_Timeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GeneratorTimeout = 20 * time.Millisecond
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	gen := func(context.Context, string, string) (string, error) {
		<-release // ignores its context
		return validDaily, nil
	}

	s := summarize(domain.DailyPeriod(reportDay), mixedDay())
	start := time.Now()
	r := newTestNarrator(cfg).GenerateReport(context.Background(), s, gen)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, r.UsedFallback)
	assert.Contains(t, r.FallbackReason, context.DeadlineExceeded.Error())
}

func TestGenerateReport_NoRetry(t *testing.T) {
	var calls int32
	gen := func(context.Context, string, string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", errors.New("rate limited")
	}

	s := summarize(domain.DailyPeriod(reportDay), mixedDay())
	newTestNarrator(DefaultConfig()).GenerateReport(context.Background(), s, gen)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
