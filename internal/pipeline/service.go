// Package pipeline runs reflection, pattern discovery and adjustment review
// against the configured stores.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"trade-memory/internal/adjustment"
	"trade-memory/internal/domain"
	"trade-memory/internal/metrics"
	"trade-memory/internal/observability"
	"trade-memory/internal/patterns"
	"trade-memory/internal/reporting"
	"trade-memory/internal/storage"
)

// ErrNoPatterns is returned by GenerateAdjustments when no discovery run is stored.
var ErrNoPatterns = errors.New("no discovered patterns; run pattern discovery first")

// Stores groups the persistence the service works against.
type Stores struct {
	Trades      storage.TradeRecordStore
	Patterns    storage.PatternStore
	Adjustments storage.AdjustmentStore
	Reports     storage.ReportStore
}

// Options configures a Service. A zero-valued sub-config is replaced by its
// package default. The adjustment evidence threshold never drops below the
// discovery threshold.
type Options struct {
	Metrics    metrics.Config
	Reporting  reporting.Config
	Patterns   patterns.Config
	Adjustment adjustment.Config
	RiskLimits adjustment.RiskLimits

	// PatternLookback bounds the trades a discovery run reads, ending now.
	// Zero reads the whole journal.
	PatternLookback time.Duration

	// OutputDir receives report files. Empty disables file output.
	OutputDir string
}

// Service is the reflection engine wired to storage.
type Service struct {
	stores     Stores
	opts       Options
	aggregator *metrics.Aggregator
	narrator   *reporting.Narrator
	discoverer *patterns.Discoverer
	engine     *adjustment.Engine
	generator  reporting.GeneratorFunc
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewService creates a service. gen may be nil for template-only reports;
// logger and m may be nil. With m set, store calls are timed.
func NewService(stores Stores, opts Options, gen reporting.GeneratorFunc, logger *zap.Logger, m *observability.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	stores = Instrument(stores, m)
	opts = opts.withDefaults()
	s := &Service{
		stores:     stores,
		opts:       opts,
		aggregator: metrics.NewAggregator(stores.Trades, opts.Metrics),
		narrator:   reporting.NewNarrator(opts.Reporting, logger.Named("narrator")),
		discoverer: patterns.NewDiscoverer(opts.Patterns),
		engine:     adjustment.NewEngine(opts.Adjustment),
		generator:  gen,
		logger:     logger,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
	return s
}

// DefaultOptions returns options built from each component's defaults.
func DefaultOptions() Options {
	return Options{
		Metrics:         metrics.DefaultConfig(),
		Reporting:       reporting.DefaultConfig(),
		Patterns:        patterns.DefaultConfig(),
		Adjustment:      adjustment.DefaultConfig(),
		PatternLookback: 30 * 24 * time.Hour,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Metrics == (metrics.Config{}) {
		o.Metrics = def.Metrics
	}
	if o.Reporting == (reporting.Config{}) {
		o.Reporting = def.Reporting
	}
	pc := o.Patterns
	pc.Metrics = metrics.Config{}
	if pc == (patterns.Config{}) {
		o.Patterns = def.Patterns
	}
	o.Patterns.Metrics = o.Metrics
	if o.Adjustment == (adjustment.Config{}) {
		o.Adjustment = def.Adjustment
	}
	if o.Adjustment.MinEvidence < o.Patterns.MinEvidence {
		o.Adjustment.MinEvidence = o.Patterns.MinEvidence
	}
	return o
}

// WithClock sets a custom clock function for deterministic output.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.narrator = s.narrator.WithClock(now)
	s.discoverer = s.discoverer.WithClock(now)
	s.engine = s.engine.WithClock(now)
	return s
}

// WithIDGenerator overrides adjustment id generation.
func (s *Service) WithIDGenerator(newID func() string) *Service {
	s.engine = s.engine.WithIDGenerator(newID)
	return s
}

// Reflection is the outcome of one reflection run.
type Reflection struct {
	Report  *domain.ReflectionReport
	Summary *metrics.PeriodSummary
	Files   []string // written output files, empty without an output dir
}

// RunDaily reflects on the UTC day containing date.
func (s *Service) RunDaily(ctx context.Context, date time.Time) (*Reflection, error) {
	return s.Reflect(ctx, domain.DailyPeriod(date))
}

// RunWeekly reflects on the seven days ending on weekEnding.
func (s *Service) RunWeekly(ctx context.Context, weekEnding time.Time) (*Reflection, error) {
	return s.Reflect(ctx, domain.WeeklyPeriod(weekEnding))
}

// RunMonthly reflects on a calendar month.
func (s *Service) RunMonthly(ctx context.Context, year int, month time.Month) (*Reflection, error) {
	return s.Reflect(ctx, domain.MonthlyPeriod(year, month))
}

// Reflect summarizes the period, generates its report, stores it and
// writes output files when an output directory is configured.
func (s *Service) Reflect(ctx context.Context, p domain.Period) (res *Reflection, err error) {
	start := time.Now()
	op := "reflect_" + string(p.Kind)
	defer func() { s.metrics.RecordRun(op, start, err) }()

	summary, err := s.aggregator.SummarizePeriod(ctx, p)
	if err != nil {
		return nil, err
	}

	report := s.narrator.GenerateReport(ctx, summary, s.generator)
	s.metrics.RecordReport(string(p.Kind), string(report.Source), report.UsedFallback)

	if err := s.stores.Reports.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("save %s report %s: %w", p.Kind, p.ID(), err)
	}

	res = &Reflection{Report: report, Summary: summary}
	if s.opts.OutputDir != "" {
		files, err := s.writeReportFiles(report, summary)
		if err != nil {
			return nil, err
		}
		res.Files = files
	}

	s.logger.Info("reflection complete",
		zap.String("period", p.ID()),
		zap.String("kind", string(p.Kind)),
		zap.Int("trades", summary.Overall.TradeCount),
		zap.String("source", string(report.Source)),
		zap.Bool("used_fallback", report.UsedFallback),
	)
	return res, nil
}

func (s *Service) writeReportFiles(r *domain.ReflectionReport, summary *metrics.PeriodSummary) ([]string, error) {
	if err := os.MkdirAll(s.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	csv, err := reporting.RenderSegmentsCSV(summary)
	if err != nil {
		return nil, err
	}

	key := r.Period.Key()
	outputs := []struct {
		name, body string
	}{
		{"reflection_" + key + ".txt", r.Narrative},
		{"reflection_" + key + ".md", reporting.RenderMarkdown(r)},
		{"segments_" + key + ".csv", csv},
	}

	files := make([]string, 0, len(outputs))
	for _, o := range outputs {
		path := filepath.Join(s.opts.OutputDir, o.name)
		if err := os.WriteFile(path, []byte(o.body), 0o644); err != nil {
			return files, fmt.Errorf("write %s: %w", o.name, err)
		}
		files = append(files, path)
	}
	return files, nil
}

// Report returns a stored report.
func (s *Service) Report(ctx context.Context, kind domain.PeriodKind, periodID string) (*domain.ReflectionReport, error) {
	return s.stores.Reports.Get(ctx, kind, periodID)
}

// Reports lists stored reports of one kind, most recent first.
func (s *Service) Reports(ctx context.Context, kind domain.PeriodKind, limit int) ([]*domain.ReflectionReport, error) {
	return s.stores.Reports.List(ctx, kind, limit)
}

// Summary computes metrics for a period without generating a report.
func (s *Service) Summary(ctx context.Context, p domain.Period) (*metrics.PeriodSummary, error) {
	return s.aggregator.SummarizePeriod(ctx, p)
}
