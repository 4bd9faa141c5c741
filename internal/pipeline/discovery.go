package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

// DiscoverPatterns classifies the journal within the lookback window and
// stores the result as one discovery run, even when it is empty. An empty
// dims slice uses domain.DefaultDimensions.
func (s *Service) DiscoverPatterns(ctx context.Context, dims []domain.Dimension) (found []domain.Pattern, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordRun("discover_patterns", start, err) }()

	runAt := s.now()
	var filter storage.TradeFilter
	if s.opts.PatternLookback > 0 {
		filter.Start = runAt.Add(-s.opts.PatternLookback)
	}

	trades, err := s.stores.Trades.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load trades for discovery: %w", err)
	}

	// An empty run is stored too, so GetLatest no longer serves the previous one.
	found = s.discoverer.Discover(trades, dims)
	batch := make([]*domain.Pattern, len(found))
	for i := range found {
		found[i].DiscoveredAt = runAt
		batch[i] = &found[i]
		s.metrics.RecordPattern(string(found[i].Dimension), string(found[i].Edge))
	}
	if err := s.stores.Patterns.SaveRun(ctx, runAt, batch); err != nil {
		return nil, fmt.Errorf("store patterns: %w", err)
	}

	if len(found) == 0 {
		s.logger.Info("no patterns with enough evidence", zap.Int("trades", len(trades)))
		return found, nil
	}
	s.logger.Info("patterns discovered",
		zap.Int("trades", len(trades)),
		zap.Int("patterns", len(found)),
	)
	return found, nil
}

// LatestPatterns returns the most recent discovery run.
func (s *Service) LatestPatterns(ctx context.Context) ([]domain.Pattern, error) {
	stored, err := s.stores.Patterns.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest patterns: %w", err)
	}
	result := make([]domain.Pattern, len(stored))
	for i, p := range stored {
		result[i] = *p
	}
	return result, nil
}
