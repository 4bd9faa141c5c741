package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trade-memory/internal/adjustment"
	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

// GenerateAdjustments runs the rule engine over the latest discovery run
// and stores the new proposals. Targets with an unresolved adjustment are
// left alone.
func (s *Service) GenerateAdjustments(ctx context.Context) (proposals []*domain.StrategyAdjustment, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordRun("generate_adjustments", start, err) }()

	latest, err := s.LatestPatterns(ctx)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return nil, ErrNoPatterns
	}

	unresolved, err := s.stores.Adjustments.ListUnresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unresolved adjustments: %w", err)
	}

	proposals = s.engine.Generate(latest, unresolved, s.opts.RiskLimits)
	if len(proposals) == 0 {
		s.logger.Info("no adjustments proposed",
			zap.Int("patterns", len(latest)),
			zap.Int("unresolved", len(unresolved)),
		)
		return proposals, nil
	}

	if err := s.stores.Adjustments.InsertBulk(ctx, proposals); err != nil {
		return nil, fmt.Errorf("store adjustments: %w", err)
	}
	for _, a := range proposals {
		s.metrics.RecordAdjustmentProposed(string(a.Type))
		s.logger.Info("adjustment proposed",
			zap.String("id", a.AdjustmentID),
			zap.String("type", string(a.Type)),
			zap.String("target", a.TargetKey()),
			zap.String("change", a.OldValue+" -> "+a.NewValue),
		)
	}
	return proposals, nil
}

// Adjustments lists stored adjustments matching f.
func (s *Service) Adjustments(ctx context.Context, f storage.AdjustmentFilter) ([]*domain.StrategyAdjustment, error) {
	return s.stores.Adjustments.Query(ctx, f)
}

// Approve moves a proposed adjustment to approved.
func (s *Service) Approve(ctx context.Context, id string) (*domain.StrategyAdjustment, error) {
	return s.transition(ctx, id, domain.StatusApproved)
}

// Reject moves a proposed adjustment to rejected.
func (s *Service) Reject(ctx context.Context, id string) (*domain.StrategyAdjustment, error) {
	return s.transition(ctx, id, domain.StatusRejected)
}

// Apply moves an approved adjustment to applied. Applying only records the
// decision; the trading agent reads applied adjustments on its own.
func (s *Service) Apply(ctx context.Context, id string) (*domain.StrategyAdjustment, error) {
	return s.transition(ctx, id, domain.StatusApplied)
}

// transition checks the move against the lifecycle table, then persists it
// with a compare-and-set on the status read. A concurrent writer surfaces
// as storage.ErrConflict.
func (s *Service) transition(ctx context.Context, id string, to domain.AdjustmentStatus) (*domain.StrategyAdjustment, error) {
	current, err := s.stores.Adjustments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load adjustment %s: %w", id, err)
	}

	next, err := adjustment.Transition(current, to, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.stores.Adjustments.UpdateStatus(ctx, next, current.Status); err != nil {
		return nil, fmt.Errorf("update adjustment %s: %w", id, err)
	}

	s.metrics.RecordTransition(string(to))
	s.logger.Info("adjustment status changed",
		zap.String("id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
	)
	return next, nil
}
