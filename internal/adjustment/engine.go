// Package adjustment turns discovered patterns into strategy adjustment
// proposals and owns their status lifecycle.
package adjustment

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"trade-memory/internal/domain"
	"trade-memory/internal/metrics"
)

// Config holds rule thresholds and sizing factors.
type Config struct {
	DisableWinRate     float64 `yaml:"disable_win_rate"`    // WEAK strategy at or below is disabled
	PreferMultiplier   float64 `yaml:"prefer_multiplier"`   // strategy_prefer size factor
	IncreaseMultiplier float64 `yaml:"increase_multiplier"` // session_increase size factor
	ReduceFactor       float64 `yaml:"reduce_factor"`       // session_reduce size factor
	MaxSizeCap         float64 `yaml:"max_size_cap"`        // ceiling for any increased size
	DefaultMaxSize     float64 `yaml:"default_max_size"`    // size assumed when RiskLimits has none
	MinEvidence        int     `yaml:"min_evidence"`
}

// DefaultConfig returns the default rule configuration.
func DefaultConfig() Config {
	return Config{
		DisableWinRate:     0.30,
		PreferMultiplier:   1.5,
		IncreaseMultiplier: 1.5,
		ReduceFactor:       0.5,
		MaxSizeCap:         1.0,
		DefaultMaxSize:     0.1,
		MinEvidence:        4,
	}
}

// RiskLimits are the current per-target maximum position sizes.
type RiskLimits struct {
	StrategyMaxSize map[string]float64 `yaml:"strategy_max_size"`
	SessionMaxSize  map[string]float64 `yaml:"session_max_size"`
}

// Parameters named in proposals.
const (
	ParamEnabled           = "enabled"
	ParamMaxLotSize        = "max_lot_size"
	ParamAllowedDirections = "allowed_directions"
)

// precedence orders rules competing for the same target; lower wins.
var precedence = map[domain.AdjustmentType]int{
	domain.AdjustmentStrategyDisable:   0,
	domain.AdjustmentDirectionRestrict: 1,
	domain.AdjustmentStrategyPrefer:    2,
	domain.AdjustmentSessionReduce:     2,
	domain.AdjustmentSessionIncrease:   2,
}

// Engine evaluates the adjustment rules.
type Engine struct {
	cfg   Config
	now   func() time.Time
	newID func() string
}

// NewEngine creates a new rule engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// WithClock sets a custom clock function for deterministic output.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithIDGenerator sets a custom adjustment id generator.
func (e *Engine) WithIDGenerator(newID func() string) *Engine {
	e.newID = newID
	return e
}

// Generate proposes adjustments for the given patterns.
//
// A target that already carries an unresolved adjustment is skipped. When
// several rules match one target, only the highest precedence proposal is
// kept: disable, then direction restriction, then exposure change. Proposals
// that would not change the current value are dropped. Output is ordered by
// target kind then target name.
func (e *Engine) Generate(patterns []domain.Pattern, unresolved []*domain.StrategyAdjustment, limits RiskLimits) []*domain.StrategyAdjustment {
	blocked := make(map[string]struct{}, len(unresolved))
	for _, a := range unresolved {
		if a != nil && a.Status.Unresolved() {
			blocked[a.TargetKey()] = struct{}{}
		}
	}

	byDirection := make(map[string]domain.Pattern)
	for _, p := range patterns {
		if p.Dimension == domain.DimensionStrategyDirection {
			byDirection[p.Segment] = p
		}
	}

	best := make(map[string]*domain.StrategyAdjustment)
	for _, p := range patterns {
		if p.SampleSize < e.cfg.MinEvidence || len(p.Evidence) == 0 {
			continue
		}
		for _, candidate := range e.evaluate(p, byDirection, limits) {
			key := candidate.TargetKey()
			if _, skip := blocked[key]; skip {
				continue
			}
			if candidate.OldValue == candidate.NewValue {
				continue
			}
			current, exists := best[key]
			if !exists || precedence[candidate.Type] < precedence[current.Type] {
				best[key] = candidate
			}
		}
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := e.now()
	result := make([]*domain.StrategyAdjustment, 0, len(keys))
	for _, k := range keys {
		a := best[k]
		a.AdjustmentID = e.newID()
		a.Status = domain.StatusProposed
		a.CreatedAt = now
		a.StatusChangedAt = now
		result = append(result, a)
	}
	return result
}

// evaluate runs every rule against one pattern. The unknown bucket names no
// real strategy or session, so it never yields a proposal.
func (e *Engine) evaluate(p domain.Pattern, byDirection map[string]domain.Pattern, limits RiskLimits) []*domain.StrategyAdjustment {
	if p.Segment == domain.SegmentUnknown {
		return nil
	}
	switch p.Dimension {
	case domain.DimensionStrategy:
		switch {
		case p.Edge == domain.EdgeWeak && p.WinRate <= e.cfg.DisableWinRate:
			return []*domain.StrategyAdjustment{e.disable(p)}
		case p.Edge == domain.EdgeHigh:
			return []*domain.StrategyAdjustment{e.prefer(p, limits)}
		}

	case domain.DimensionSession:
		switch p.Edge {
		case domain.EdgeWeak:
			return []*domain.StrategyAdjustment{e.reduceSession(p, limits)}
		case domain.EdgeHigh:
			return []*domain.StrategyAdjustment{e.increaseSession(p, limits)}
		}

	case domain.DimensionStrategyDirection:
		if p.Edge != domain.EdgeWeak {
			return nil
		}
		strategy, dir, ok := metrics.SplitStrategyDirection(p.Segment)
		if !ok {
			return nil
		}
		opposite, exists := byDirection[strategy+"/"+string(dir.Opposite())]
		if !exists || opposite.Edge == domain.EdgeWeak {
			return nil
		}
		return []*domain.StrategyAdjustment{e.restrictDirection(p, strategy, dir, opposite)}
	}
	return nil
}

func (e *Engine) disable(p domain.Pattern) *domain.StrategyAdjustment {
	a := e.proposal(p, domain.AdjustmentStrategyDisable, domain.TargetStrategy, p.Segment, ParamEnabled, "true", "false")
	a.Justification = fmt.Sprintf(
		"Strategy %s is WEAK: win rate %.2f over %d trades (%d W / %d L, net P&L %.2f) is at or below %.2f. Disable it.",
		p.Segment, p.WinRate, p.SampleSize, p.Winners, p.Losers, p.NetPnL, e.cfg.DisableWinRate)
	return a
}

func (e *Engine) prefer(p domain.Pattern, limits RiskLimits) *domain.StrategyAdjustment {
	old := sizeOf(limits.StrategyMaxSize, p.Segment, e.cfg.DefaultMaxSize)
	next := e.capped(old * e.cfg.PreferMultiplier)
	a := e.proposal(p, domain.AdjustmentStrategyPrefer, domain.TargetStrategy, p.Segment, ParamMaxLotSize, formatSize(old), formatSize(next))
	a.Justification = fmt.Sprintf(
		"Strategy %s has HIGH_EDGE: win rate %.2f over %d trades (net P&L %.2f). Raise %s from %s to %s.",
		p.Segment, p.WinRate, p.SampleSize, p.NetPnL, ParamMaxLotSize, a.OldValue, a.NewValue)
	return a
}

func (e *Engine) reduceSession(p domain.Pattern, limits RiskLimits) *domain.StrategyAdjustment {
	old := sizeOf(limits.SessionMaxSize, p.Segment, e.cfg.DefaultMaxSize)
	next := old * e.cfg.ReduceFactor
	a := e.proposal(p, domain.AdjustmentSessionReduce, domain.TargetSession, p.Segment, ParamMaxLotSize, formatSize(old), formatSize(next))
	a.Justification = fmt.Sprintf(
		"Session %s is WEAK: win rate %.2f over %d trades (net P&L %.2f). Cut %s from %s to %s.",
		p.Segment, p.WinRate, p.SampleSize, p.NetPnL, ParamMaxLotSize, a.OldValue, a.NewValue)
	return a
}

func (e *Engine) increaseSession(p domain.Pattern, limits RiskLimits) *domain.StrategyAdjustment {
	old := sizeOf(limits.SessionMaxSize, p.Segment, e.cfg.DefaultMaxSize)
	next := e.capped(old * e.cfg.IncreaseMultiplier)
	a := e.proposal(p, domain.AdjustmentSessionIncrease, domain.TargetSession, p.Segment, ParamMaxLotSize, formatSize(old), formatSize(next))
	a.Justification = fmt.Sprintf(
		"Session %s has HIGH_EDGE: win rate %.2f over %d trades (net P&L %.2f). Raise %s from %s to %s.",
		p.Segment, p.WinRate, p.SampleSize, p.NetPnL, ParamMaxLotSize, a.OldValue, a.NewValue)
	return a
}

func (e *Engine) restrictDirection(p domain.Pattern, strategy string, weak domain.Direction, strong domain.Pattern) *domain.StrategyAdjustment {
	keep := weak.Opposite()
	a := e.proposal(p, domain.AdjustmentDirectionRestrict, domain.TargetStrategy, strategy, ParamAllowedDirections,
		string(domain.DirectionLong)+","+string(domain.DirectionShort), string(keep))
	a.Justification = fmt.Sprintf(
		"Strategy %s %s trades are WEAK: win rate %.2f over %d trades, against %.2f over %d trades %s. Allow %s only.",
		strategy, weak, p.WinRate, p.SampleSize, strong.WinRate, strong.SampleSize, keep, keep)
	return a
}

func (e *Engine) proposal(p domain.Pattern, typ domain.AdjustmentType, kind domain.TargetKind, target, param, oldValue, newValue string) *domain.StrategyAdjustment {
	return &domain.StrategyAdjustment{
		Type:            typ,
		TargetKind:      kind,
		Target:          target,
		Parameter:       param,
		OldValue:        oldValue,
		NewValue:        newValue,
		SourcePatternID: p.PatternID,
		Evidence:        append([]string(nil), p.Evidence...),
		Confidence:      p.Confidence,
	}
}

func (e *Engine) capped(v float64) float64 {
	if e.cfg.MaxSizeCap > 0 && v > e.cfg.MaxSizeCap {
		return e.cfg.MaxSizeCap
	}
	return v
}

func sizeOf(limits map[string]float64, target string, def float64) float64 {
	if v, ok := limits[target]; ok && v > 0 {
		return v
	}
	return def
}

// formatSize renders a lot size with at most four decimals.
func formatSize(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}
