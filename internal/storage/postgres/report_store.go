package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

const reportColumns = `
	period_kind, period_start, period_end, metrics, narrative,
	source, used_fallback, fallback_reason, model, generated_at
`

// ReportStore implements storage.ReportStore using PostgreSQL.
type ReportStore struct {
	pool *Pool
}

// NewReportStore creates a new ReportStore.
func NewReportStore(pool *Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

// Save inserts or replaces the report for its period.
func (s *ReportStore) Save(ctx context.Context, r *domain.ReflectionReport) error {
	if r == nil || r.Period.Kind == "" {
		return storage.ErrInvalidInput
	}

	metrics, err := json.Marshal(r.Metrics)
	if err != nil {
		return fmt.Errorf("marshal report metrics: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO reflection_reports (period_id, `+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (period_kind, period_id) DO UPDATE SET
			period_start    = EXCLUDED.period_start,
			period_end      = EXCLUDED.period_end,
			metrics         = EXCLUDED.metrics,
			narrative       = EXCLUDED.narrative,
			source          = EXCLUDED.source,
			used_fallback   = EXCLUDED.used_fallback,
			fallback_reason = EXCLUDED.fallback_reason,
			model           = EXCLUDED.model,
			generated_at    = EXCLUDED.generated_at
	`,
		r.Period.ID(), string(r.Period.Kind), r.Period.Start.UTC(), r.Period.End.UTC(), metrics, r.Narrative,
		string(r.Source), r.UsedFallback, r.FallbackReason, r.Model, r.GeneratedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// Get retrieves the report for a period. Returns ErrNotFound if not exists.
func (s *ReportStore) Get(ctx context.Context, kind domain.PeriodKind, periodID string) (*domain.ReflectionReport, error) {
	query := `SELECT ` + reportColumns + ` FROM reflection_reports WHERE period_kind = $1 AND period_id = $2`

	r, err := scanReport(s.pool.QueryRow(ctx, query, string(kind), periodID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

// List retrieves reports of one kind, most recent period first.
func (s *ReportStore) List(ctx context.Context, kind domain.PeriodKind, limit int) ([]*domain.ReflectionReport, error) {
	query := `SELECT ` + reportColumns + `
		FROM reflection_reports
		WHERE period_kind = $1
		ORDER BY period_start DESC
	`
	args := []any{string(kind)}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.ReflectionReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}
	return reports, nil
}

func scanReport(row pgx.Row) (*domain.ReflectionReport, error) {
	var (
		r            domain.ReflectionReport
		kind, source string
		metrics      []byte
	)

	err := row.Scan(
		&kind, &r.Period.Start, &r.Period.End, &metrics, &r.Narrative,
		&source, &r.UsedFallback, &r.FallbackReason, &r.Model, &r.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(metrics, &r.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal report metrics: %w", err)
	}
	r.Period.Kind = domain.PeriodKind(kind)
	r.Period.Start = r.Period.Start.UTC()
	r.Period.End = r.Period.End.UTC()
	r.Source = domain.ReportSource(source)
	r.GeneratedAt = r.GeneratedAt.UTC()
	return &r, nil
}
