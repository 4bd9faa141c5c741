package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

const tradeColumns = `
	trade_id, agent_id, entry_time, symbol, direction,
	position_size, strategy, confidence, reasoning,
	market_price, market_volatility, market_session, indicators,
	exit_time, exit_price, pnl, pnl_r, hold_minutes,
	exit_reasoning, execution_quality, lessons
`

const insertTradeQuery = `
	INSERT INTO trade_records (` + tradeColumns + `) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9,
		$10, $11, $12, $13,
		$14, $15, $16, $17, $18,
		$19, $20, $21
	)
`

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	args, err := tradeArgs(t)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, insertTradeQuery, args...); err != nil {
		return insertError("insert trade record", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeRecordStore) InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		args, err := tradeArgs(t)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertTradeQuery, args...); err != nil {
			return insertError("insert trade record in bulk", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade_records WHERE trade_id = $1`

	t, err := scanTradeRecord(s.pool.QueryRow(ctx, query, tradeID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record by id: %w", err)
	}
	return t, nil
}

// Query retrieves trades matching the filter, ordered by timestamp ASC, trade_id ASC.
func (s *TradeRecordStore) Query(ctx context.Context, f storage.TradeFilter) ([]*domain.TradeRecord, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if !f.Start.IsZero() {
		add("entry_time >= $%d", f.Start)
	}
	if !f.End.IsZero() {
		add("entry_time < $%d", f.End)
	}
	if f.Strategy != "" {
		add("strategy = $%d", f.Strategy)
	}
	if f.Symbol != "" {
		add("symbol = $%d", f.Symbol)
	}
	if f.AgentID != "" {
		add("agent_id = $%d", f.AgentID)
	}

	query := `SELECT ` + tradeColumns + ` FROM trade_records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY entry_time ASC, trade_id ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trade records: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

func tradeArgs(t *domain.TradeRecord) ([]any, error) {
	if t == nil {
		return nil, storage.ErrInvalidInput
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	var indicators []byte
	if len(t.Market.Indicators) > 0 {
		var err error
		if indicators, err = json.Marshal(t.Market.Indicators); err != nil {
			return nil, fmt.Errorf("marshal indicators for %s: %w", t.TradeID, err)
		}
	}

	var exitTime any
	if t.ExitTime != nil {
		exitTime = t.ExitTime.UTC()
	}

	return []any{
		t.TradeID, t.AgentID, t.Timestamp.UTC(), t.Symbol, string(t.Direction),
		t.PositionSize, t.Strategy, t.Confidence, t.Reasoning,
		t.Market.Price, t.Market.Volatility, t.Market.Session, indicators,
		exitTime, t.ExitPrice, t.PnL, t.PnLR, t.HoldMinutes,
		t.ExitReasoning, t.ExecutionQuality, t.Lessons,
	}, nil
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var (
		t          domain.TradeRecord
		direction  string
		indicators []byte
	)

	err := row.Scan(
		&t.TradeID, &t.AgentID, &t.Timestamp, &t.Symbol, &direction,
		&t.PositionSize, &t.Strategy, &t.Confidence, &t.Reasoning,
		&t.Market.Price, &t.Market.Volatility, &t.Market.Session, &indicators,
		&t.ExitTime, &t.ExitPrice, &t.PnL, &t.PnLR, &t.HoldMinutes,
		&t.ExitReasoning, &t.ExecutionQuality, &t.Lessons,
	)
	if err != nil {
		return nil, err
	}

	t.Direction = domain.Direction(direction)
	t.Timestamp = t.Timestamp.UTC()
	if t.ExitTime != nil {
		et := t.ExitTime.UTC()
		t.ExitTime = &et
	}
	if len(indicators) > 0 {
		if err := json.Unmarshal(indicators, &t.Market.Indicators); err != nil {
			return nil, fmt.Errorf("unmarshal indicators for %s: %w", t.TradeID, err)
		}
	}
	return &t, nil
}

// scanTradeRecords scans multiple rows into a slice of TradeRecord.
func scanTradeRecords(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		t, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}
	return trades, nil
}
