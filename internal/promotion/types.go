// Package promotion implements the scheduled cycle that moves records
// between tiers: a rule-gate built on record.PromotionCriteria, an optional
// ML suppress layer on top of it, and an age-based expiry path for
// records that go stale before they ever qualify.
package promotion

import "time"

// TierStats summarizes what a promotion cycle did to one tier.
type TierStats struct {
	Scanned    int
	Promoted   int
	Expired    int
	Suppressed int
	Failed     int
}

// CycleStats summarizes a full promotion cycle across every tier pair plus
// its total wall-clock duration.
type CycleStats struct {
	Interact CycleTierStats
	Insights CycleTierStats
	Started  time.Time
	Duration time.Duration
}

// CycleTierStats is the per-source-tier outcome of one cycle: how many
// records were scanned, how many promoted out, how many expired in place,
// how many were suppressed (inside the re-promotion interval or vetoed by
// the ML scorer), and how many failed.
type CycleTierStats = TierStats
