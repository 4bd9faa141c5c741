package domain

import "time"

// AdjustmentType enumerates the proposals the rule engine can make.
type AdjustmentType string

const (
	AdjustmentStrategyDisable   AdjustmentType = "strategy_disable"
	AdjustmentStrategyPrefer    AdjustmentType = "strategy_prefer"
	AdjustmentSessionReduce     AdjustmentType = "session_reduce"
	AdjustmentSessionIncrease   AdjustmentType = "session_increase"
	AdjustmentDirectionRestrict AdjustmentType = "direction_restrict"
)

// AdjustmentStatus is the lifecycle state of an adjustment.
type AdjustmentStatus string

const (
	StatusProposed AdjustmentStatus = "proposed"
	StatusApproved AdjustmentStatus = "approved"
	StatusApplied  AdjustmentStatus = "applied"
	StatusRejected AdjustmentStatus = "rejected"
)

// Unresolved reports whether the status still awaits a final outcome.
func (s AdjustmentStatus) Unresolved() bool {
	return s == StatusProposed || s == StatusApproved
}

// ParseAdjustmentStatus validates a status name.
func ParseAdjustmentStatus(s string) (AdjustmentStatus, bool) {
	switch st := AdjustmentStatus(s); st {
	case StatusProposed, StatusApproved, StatusApplied, StatusRejected:
		return st, true
	}
	return "", false
}

// ParseAdjustmentType validates an adjustment type name.
func ParseAdjustmentType(s string) (AdjustmentType, bool) {
	switch at := AdjustmentType(s); at {
	case AdjustmentStrategyDisable, AdjustmentStrategyPrefer, AdjustmentSessionReduce,
		AdjustmentSessionIncrease, AdjustmentDirectionRestrict:
		return at, true
	}
	return "", false
}

// TargetKind says what an adjustment target names.
type TargetKind string

const (
	TargetStrategy TargetKind = "strategy"
	TargetSession  TargetKind = "session"
)

// StrategyAdjustment is a proposed parameter change derived from patterns.
// Status only moves through the adjustment package transition table.
type StrategyAdjustment struct {
	AdjustmentID    string
	Type            AdjustmentType
	TargetKind      TargetKind
	Target          string // strategy or session name
	Parameter       string // e.g. "enabled", "max_lot_size", "allowed_directions"
	OldValue        string
	NewValue        string
	Justification   string
	SourcePatternID string
	Evidence        []string // trade ids behind the source pattern
	Confidence      float64
	Status          AdjustmentStatus
	CreatedAt       time.Time
	StatusChangedAt time.Time
}

// TargetKey identifies the adjusted entity, e.g. "strategy:VolBreakout".
func (a StrategyAdjustment) TargetKey() string {
	return string(a.TargetKind) + ":" + a.Target
}
