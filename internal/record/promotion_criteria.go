package record

import (
	"fmt"
	"time"
)

// PromotionCriteria encapsulates the business rule that determines whether a
// record qualifies for promotion from one tier to the next: a minimum access
// count, a maximum interval between accesses, a minimum age, a minimum
// importance score, and whether an accelerating access pattern is required.
//
// It carries five fields, two validation rules, and strict/lenient/default
// variants per tier pair.
type PromotionCriteria struct {
	MinAccessCount       uint64
	MaxAccessInterval    time.Duration
	MinAge               time.Duration
	MinImportanceScore   float64
	RequireAcceleration  bool
}

// NewPromotionCriteria validates and constructs a PromotionCriteria.
func NewPromotionCriteria(minAccessCount uint64, maxAccessInterval, minAge time.Duration, minImportanceScore float64, requireAcceleration bool) (PromotionCriteria, error) {
	if minImportanceScore < 0.0 || minImportanceScore > 1.0 {
		return PromotionCriteria{}, fmt.Errorf("promotion criteria: importance score must be in [0,1], got %f", minImportanceScore)
	}
	if minAccessCount == 0 {
		return PromotionCriteria{}, fmt.Errorf("promotion criteria: min access count must be > 0")
	}
	return PromotionCriteria{
		MinAccessCount:      minAccessCount,
		MaxAccessInterval:   maxAccessInterval,
		MinAge:              minAge,
		MinImportanceScore:  minImportanceScore,
		RequireAcceleration: requireAcceleration,
	}, nil
}

// InteractToInsights returns the default criteria for promoting out of
// Interact, matching spec defaults: C_i=5, min_age=1h, max_interval=4h. The
// rule gate on this path carries no importance floor; importance only
// gates Insights -> Assets.
func InteractToInsights() PromotionCriteria {
	return PromotionCriteria{
		MinAccessCount:    5,
		MaxAccessInterval: 4 * time.Hour,
		MinAge:            time.Hour,
	}
}

// InsightsToAssets returns the default criteria for promoting out of
// Insights, matching spec defaults: C_a=10, min_age=7d.
func InsightsToAssets() PromotionCriteria {
	return PromotionCriteria{
		MinAccessCount:     10,
		MaxAccessInterval:  24 * time.Hour,
		MinAge:             7 * 24 * time.Hour,
		MinImportanceScore: 0.5,
	}
}

// StrictForTiers returns a higher-bar variant of the criteria for the given
// tier pair, used when callers want fewer, higher-confidence promotions.
func StrictForTiers(from, to Tier) (PromotionCriteria, error) {
	switch {
	case from == Interact && to == Insights:
		return PromotionCriteria{
			MinAccessCount:      10,
			MaxAccessInterval:   2 * time.Hour,
			MinAge:              4 * time.Hour,
			MinImportanceScore:  0.5,
			RequireAcceleration: true,
		}, nil
	case from == Insights && to == Assets:
		return PromotionCriteria{
			MinAccessCount:      20,
			MaxAccessInterval:   12 * time.Hour,
			MinAge:              14 * 24 * time.Hour,
			MinImportanceScore:  0.7,
			RequireAcceleration: true,
		}, nil
	default:
		return PromotionCriteria{}, fmt.Errorf("promotion criteria: invalid promotion path %s -> %s", from, to)
	}
}

// LenientForTiers returns a lower-bar variant of the criteria for the given
// tier pair, used when callers want promotion to happen more readily.
func LenientForTiers(from, to Tier) (PromotionCriteria, error) {
	switch {
	case from == Interact && to == Insights:
		return PromotionCriteria{
			MinAccessCount:     3,
			MaxAccessInterval:  8 * time.Hour,
			MinAge:             30 * time.Minute,
			MinImportanceScore: 0.2,
		}, nil
	case from == Insights && to == Assets:
		return PromotionCriteria{
			MinAccessCount:     5,
			MaxAccessInterval:  48 * time.Hour,
			MinAge:             3 * 24 * time.Hour,
			MinImportanceScore: 0.3,
		}, nil
	default:
		return PromotionCriteria{}, fmt.Errorf("promotion criteria: invalid promotion path %s -> %s", from, to)
	}
}

// DefaultForTiers returns InteractToInsights or InsightsToAssets for the
// given tier pair, erroring on any other pair (there is no default path
// out of Assets).
func DefaultForTiers(from, to Tier) (PromotionCriteria, error) {
	switch {
	case from == Interact && to == Insights:
		return InteractToInsights(), nil
	case from == Insights && to == Assets:
		return InsightsToAssets(), nil
	default:
		return PromotionCriteria{}, fmt.Errorf("promotion criteria: invalid promotion path %s -> %s", from, to)
	}
}

// Description renders a short human-readable summary of the criteria, used
// in promotion-cycle logs.
func (c PromotionCriteria) Description() string {
	return fmt.Sprintf("requires %d accesses, max %s interval, min %s age, importance %.1f, acceleration=%v",
		c.MinAccessCount, c.MaxAccessInterval, c.MinAge, c.MinImportanceScore, c.RequireAcceleration)
}

// Satisfies reports whether the given stats meet this criteria's rule gate.
// accessInterval is the time since the record's last access;
// accelerating indicates whether the access rate is
// increasing over the record's lifetime.
func (c PromotionCriteria) Satisfies(accessCount uint64, age, accessInterval time.Duration, importanceScore float64, accelerating bool) bool {
	if accessCount < c.MinAccessCount {
		return false
	}
	if age < c.MinAge {
		return false
	}
	if accessInterval > c.MaxAccessInterval {
		return false
	}
	if importanceScore < c.MinImportanceScore {
		return false
	}
	if c.RequireAcceleration && !accelerating {
		return false
	}
	return true
}
