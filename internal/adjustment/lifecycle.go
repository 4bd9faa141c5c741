package adjustment

import (
	"errors"
	"fmt"
	"time"

	"trade-memory/internal/domain"
)

// ErrInvalidTransition is matched by every rejected status change.
var ErrInvalidTransition = errors.New("invalid adjustment transition")

// TransitionError describes a rejected status change.
type TransitionError struct {
	AdjustmentID string
	From         domain.AdjustmentStatus
	To           domain.AdjustmentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("adjustment %s: cannot move from %s to %s", e.AdjustmentID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// transitions is the complete lifecycle. Applied and rejected are terminal.
var transitions = map[domain.AdjustmentStatus][]domain.AdjustmentStatus{
	domain.StatusProposed: {domain.StatusApproved, domain.StatusRejected},
	domain.StatusApproved: {domain.StatusApplied},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to domain.AdjustmentStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition returns a copy of a moved to status to. a is never modified.
func Transition(a *domain.StrategyAdjustment, to domain.AdjustmentStatus, now time.Time) (*domain.StrategyAdjustment, error) {
	if a == nil {
		return nil, fmt.Errorf("transition to %s: nil adjustment", to)
	}
	if !CanTransition(a.Status, to) {
		return nil, &TransitionError{AdjustmentID: a.AdjustmentID, From: a.Status, To: to}
	}

	next := *a
	next.Evidence = append([]string(nil), a.Evidence...)
	next.Status = to
	next.StatusChangedAt = now.UTC()
	return &next, nil
}

// Approve moves a proposed adjustment to approved.
func Approve(a *domain.StrategyAdjustment, now time.Time) (*domain.StrategyAdjustment, error) {
	return Transition(a, domain.StatusApproved, now)
}

// Reject moves a proposed adjustment to rejected.
func Reject(a *domain.StrategyAdjustment, now time.Time) (*domain.StrategyAdjustment, error) {
	return Transition(a, domain.StatusRejected, now)
}

// Apply moves an approved adjustment to applied.
func Apply(a *domain.StrategyAdjustment, now time.Time) (*domain.StrategyAdjustment, error) {
	return Transition(a, domain.StatusApplied, now)
}
