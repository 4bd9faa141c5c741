package clickhouse

import (
	"context"
	"fmt"
	"time"

	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

const patternColumns = `
	pattern_id, dimension, segment,
	sample_size, winners, losers,
	win_rate, net_pnl, avg_r,
	edge, confidence, evidence, discovered_at
`

// PatternStore implements storage.PatternStore using ClickHouse.
// Each discovery run is a set of rows sharing discovered_at.
type PatternStore struct {
	conn *Conn
}

// NewPatternStore creates a new PatternStore.
func NewPatternStore(conn *Conn) *PatternStore {
	return &PatternStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PatternStore = (*PatternStore)(nil)

// SaveRun writes the run's patterns in one batch, then its discovery_runs
// row. Readers key on discovery_runs, so a run only becomes latest once
// all of its patterns are in. Re-saving a run collapses on merge.
func (s *PatternStore) SaveRun(ctx context.Context, runAt time.Time, patterns []*domain.Pattern) error {
	if runAt.IsZero() {
		return storage.ErrInvalidInput
	}
	for _, p := range patterns {
		if p == nil || p.PatternID == "" || !p.DiscoveredAt.Equal(runAt) {
			return storage.ErrInvalidInput
		}
	}

	if len(patterns) > 0 {
		if err := s.insertPatterns(ctx, patterns); err != nil {
			return err
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO discovery_runs (run_at, pattern_count)`)
	if err != nil {
		return fmt.Errorf("prepare run batch: %w", err)
	}
	if err := batch.Append(runAt.UTC(), uint32(len(patterns))); err != nil {
		return fmt.Errorf("append run: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send run batch: %w", err)
	}
	return nil
}

func (s *PatternStore) insertPatterns(ctx context.Context, patterns []*domain.Pattern) error {
	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO patterns (`+patternColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range patterns {
		evidence := p.Evidence
		if evidence == nil {
			evidence = []string{}
		}
		err = batch.Append(
			p.PatternID, string(p.Dimension), p.Segment,
			uint32(p.SampleSize), uint32(p.Winners), uint32(p.Losers),
			p.WinRate, p.NetPnL, p.AvgR,
			string(p.Edge), p.Confidence, evidence, p.DiscoveredAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByID retrieves the most recent row for a pattern id.
func (s *PatternStore) GetByID(ctx context.Context, patternID string) (*domain.Pattern, error) {
	query := `SELECT ` + patternColumns + `
		FROM patterns FINAL
		WHERE pattern_id = ?
		ORDER BY discovered_at DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, patternID)
	if err != nil {
		return nil, fmt.Errorf("query pattern: %w", err)
	}
	defer rows.Close()

	patterns, err := scanPatterns(rows)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, storage.ErrNotFound
	}
	return patterns[0], nil
}

// GetLatest retrieves the patterns of the most recent run, ordered by
// dimension then segment. No runs, or an empty latest run, yields none.
func (s *PatternStore) GetLatest(ctx context.Context) ([]*domain.Pattern, error) {
	query := `SELECT ` + patternColumns + `
		FROM patterns FINAL
		WHERE discovered_at = (SELECT max(run_at) FROM discovery_runs)
		ORDER BY dimension ASC, segment ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest patterns: %w", err)
	}
	defer rows.Close()

	return scanPatterns(rows)
}

// chRows is the subset of driver.Rows used for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPatterns(rows chRows) ([]*domain.Pattern, error) {
	var patterns []*domain.Pattern

	for rows.Next() {
		var (
			p                        domain.Pattern
			dimension, edge          string
			sampleSize, wins, losses uint32
		)
		err := rows.Scan(
			&p.PatternID, &dimension, &p.Segment,
			&sampleSize, &wins, &losses,
			&p.WinRate, &p.NetPnL, &p.AvgR,
			&edge, &p.Confidence, &p.Evidence, &p.DiscoveredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pattern row: %w", err)
		}
		p.Dimension = domain.Dimension(dimension)
		p.Edge = domain.EdgeClass(edge)
		p.SampleSize = int(sampleSize)
		p.Winners = int(wins)
		p.Losers = int(losses)
		p.DiscoveredAt = p.DiscoveredAt.UTC()
		patterns = append(patterns, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pattern rows: %w", err)
	}
	return patterns, nil
}
