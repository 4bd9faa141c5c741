package adjustment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-memory/internal/domain"
)

func proposed() *domain.StrategyAdjustment {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &domain.StrategyAdjustment{
		AdjustmentID:    "adj-1",
		Type:            domain.AdjustmentSessionReduce,
		TargetKind:      domain.TargetSession,
		Target:          "asian",
		Evidence:        []string{"T-1"},
		Status:          domain.StatusProposed,
		CreatedAt:       created,
		StatusChangedAt: created,
	}
}

func TestLifecycle_HappyPath(t *testing.T) {
	a := proposed()

	approved, err := Approve(a, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	assert.Equal(t, fixedNow, approved.StatusChangedAt)
	assert.Equal(t, domain.StatusProposed, a.Status, "input is not modified")

	applied, err := Apply(approved, fixedNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, applied.Status)
	assert.Equal(t, a.CreatedAt, applied.CreatedAt)
}

func TestLifecycle_Reject(t *testing.T) {
	rejected, err := Reject(proposed(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from domain.AdjustmentStatus
		to   domain.AdjustmentStatus
	}{
		{"approve applied", domain.StatusApplied, domain.StatusApproved},
		{"apply proposed", domain.StatusProposed, domain.StatusApplied},
		{"reject approved", domain.StatusApproved, domain.StatusRejected},
		{"approve rejected", domain.StatusRejected, domain.StatusApproved},
		{"apply rejected", domain.StatusRejected, domain.StatusApplied},
		{"approve approved", domain.StatusApproved, domain.StatusApproved},
		{"unknown target", domain.StatusProposed, domain.AdjustmentStatus("archived")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := proposed()
			a.Status = tt.from

			got, err := Transition(a, tt.to, fixedNow)

			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, ErrInvalidTransition))

			var te *TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, "adj-1", te.AdjustmentID)
			assert.Equal(t, tt.from, te.From)
			assert.Equal(t, tt.to, te.To)
			assert.Equal(t, tt.from, a.Status, "status unchanged on failure")
		})
	}
}

func TestLifecycle_EvidenceCopied(t *testing.T) {
	a := proposed()
	approved, err := Approve(a, fixedNow)
	require.NoError(t, err)

	approved.Evidence[0] = "changed"
	assert.Equal(t, "T-1", a.Evidence[0])
}

func TestLifecycle_Nil(t *testing.T) {
	_, err := Approve(nil, fixedNow)
	assert.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(domain.StatusProposed, domain.StatusApproved))
	assert.True(t, CanTransition(domain.StatusProposed, domain.StatusRejected))
	assert.True(t, CanTransition(domain.StatusApproved, domain.StatusApplied))
	assert.False(t, CanTransition(domain.StatusApplied, domain.StatusProposed))
	assert.False(t, CanTransition(domain.StatusRejected, domain.StatusProposed))
}
