package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

const adjustmentColumns = `
	adjustment_id, adjustment_type, target_kind, target, parameter,
	old_value, new_value, justification, source_pattern_id, evidence,
	confidence, status, created_at, status_changed_at
`

const insertAdjustmentQuery = `
	INSERT INTO strategy_adjustments (` + adjustmentColumns + `) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14
	)
`

// AdjustmentStore implements storage.AdjustmentStore using PostgreSQL.
type AdjustmentStore struct {
	pool *Pool
}

// NewAdjustmentStore creates a new AdjustmentStore.
func NewAdjustmentStore(pool *Pool) *AdjustmentStore {
	return &AdjustmentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AdjustmentStore = (*AdjustmentStore)(nil)

// Insert adds a new adjustment. Returns ErrDuplicateKey if adjustment_id exists.
func (s *AdjustmentStore) Insert(ctx context.Context, a *domain.StrategyAdjustment) error {
	args, err := adjustmentArgs(a)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, insertAdjustmentQuery, args...); err != nil {
		return insertError("insert adjustment", err)
	}
	return nil
}

// InsertBulk adds multiple adjustments atomically. Fails entire batch on any duplicate.
func (s *AdjustmentStore) InsertBulk(ctx context.Context, adjustments []*domain.StrategyAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range adjustments {
		args, err := adjustmentArgs(a)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertAdjustmentQuery, args...); err != nil {
			return insertError("insert adjustment in bulk", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves an adjustment. Returns ErrNotFound if not exists.
func (s *AdjustmentStore) GetByID(ctx context.Context, adjustmentID string) (*domain.StrategyAdjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM strategy_adjustments WHERE adjustment_id = $1`

	a, err := scanAdjustment(s.pool.QueryRow(ctx, query, adjustmentID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get adjustment by id: %w", err)
	}
	return a, nil
}

// Query retrieves adjustments matching the filter, newest first.
func (s *AdjustmentStore) Query(ctx context.Context, f storage.AdjustmentFilter) ([]*domain.StrategyAdjustment, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		conds = append(conds, fmt.Sprintf("adjustment_type = $%d", len(args)))
	}

	query := `SELECT ` + adjustmentColumns + ` FROM strategy_adjustments`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, adjustment_id ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query adjustments: %w", err)
	}
	defer rows.Close()

	return scanAdjustments(rows)
}

// ListUnresolved retrieves proposed and approved adjustments.
func (s *AdjustmentStore) ListUnresolved(ctx context.Context) ([]*domain.StrategyAdjustment, error) {
	query := `SELECT ` + adjustmentColumns + `
		FROM strategy_adjustments
		WHERE status IN ($1, $2)
		ORDER BY created_at DESC, adjustment_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.StatusProposed), string(domain.StatusApproved))
	if err != nil {
		return nil, fmt.Errorf("list unresolved adjustments: %w", err)
	}
	defer rows.Close()

	return scanAdjustments(rows)
}

// UpdateStatus writes the new status only while the row still holds from.
// Zero affected rows means the row is missing or another writer moved it first.
func (s *AdjustmentStore) UpdateStatus(ctx context.Context, a *domain.StrategyAdjustment, from domain.AdjustmentStatus) error {
	if a == nil || a.AdjustmentID == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE strategy_adjustments
		SET status = $1, status_changed_at = $2
		WHERE adjustment_id = $3 AND status = $4
	`, string(a.Status), a.StatusChangedAt.UTC(), a.AdjustmentID, string(from))
	if err != nil {
		return fmt.Errorf("update adjustment status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM strategy_adjustments WHERE adjustment_id = $1)`,
		a.AdjustmentID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check adjustment exists: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

func adjustmentArgs(a *domain.StrategyAdjustment) ([]any, error) {
	if a == nil || a.AdjustmentID == "" || len(a.Evidence) == 0 {
		return nil, storage.ErrInvalidInput
	}
	return []any{
		a.AdjustmentID, string(a.Type), string(a.TargetKind), a.Target, a.Parameter,
		a.OldValue, a.NewValue, a.Justification, a.SourcePatternID, a.Evidence,
		a.Confidence, string(a.Status), a.CreatedAt.UTC(), a.StatusChangedAt.UTC(),
	}, nil
}

func scanAdjustment(row pgx.Row) (*domain.StrategyAdjustment, error) {
	var (
		a                     domain.StrategyAdjustment
		adjType, kind, status     string
	)

	err := row.Scan(
		&a.AdjustmentID, &adjType, &kind, &a.Target, &a.Parameter,
		&a.OldValue, &a.NewValue, &a.Justification, &a.SourcePatternID, &a.Evidence,
		&a.Confidence, &status, &a.CreatedAt, &a.StatusChangedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Type = domain.AdjustmentType(adjType)
	a.TargetKind = domain.TargetKind(kind)
	a.Status = domain.AdjustmentStatus(status)
	a.CreatedAt = a.CreatedAt.UTC()
	a.StatusChangedAt = a.StatusChangedAt.UTC()
	return &a, nil
}

func scanAdjustments(rows pgx.Rows) ([]*domain.StrategyAdjustment, error) {
	var adjustments []*domain.StrategyAdjustment

	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan adjustment row: %w", err)
		}
		adjustments = append(adjustments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate adjustment rows: %w", err)
	}
	return adjustments, nil
}
