package promotion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magray-run/agentcore/internal/config"
	"github.com/magray-run/agentcore/internal/record"
	"github.com/magray-run/agentcore/internal/store"
	"github.com/magray-run/agentcore/internal/tier"
)

// Engine runs scheduled promotion cycles against a tier.Engine. It
// implements tier.Promoter so it can be installed with
// tier.Engine.SetPromoter and invoked via tier.Engine.RunPromotionCycle.
type Engine struct {
	store *store.Store
	tier  *tier.Engine
	cfg   config.PromotionConfig
}

// NewEngine binds a promotion engine to the already-open store and tier
// engine it will scan and move records through.
func NewEngine(st *store.Store, te *tier.Engine, cfg config.PromotionConfig) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("promotion: store is required")
	}
	if te == nil {
		return nil, fmt.Errorf("promotion: tier engine is required")
	}
	return &Engine{store: st, tier: te, cfg: cfg}, nil
}

// tierTTL returns the configured expiry window for tier t, or 0 if the
// tier is unbounded (Assets, by default).
func (e *Engine) tierTTL(t record.Tier) time.Duration {
	switch t {
	case record.Interact:
		return e.cfg.InteractTTL
	case record.Insights:
		return e.cfg.InsightsTTL
	default:
		return e.cfg.AssetsTTL
	}
}

// RunCycle scans Interact and Insights once each, promoting records that
// satisfy their tier's PromotionCriteria (and, when ML scoring is enabled,
// clear the ML scorer's threshold too), expiring records that have gone
// untouched past their tier's TTL, and leaving everything else in place.
// Assets is not scanned: it has no further promotion target and, by
// default, no TTL. Per-record failures are logged and skipped; they never
// abort the cycle.
func (e *Engine) RunCycle(ctx context.Context) (any, error) {
	started := time.Now().UTC()
	stats := CycleStats{Started: started}

	ts, err := e.store.Tier(record.Interact)
	if err != nil {
		return CycleStats{}, err
	}
	interactStats, err := e.runTier(ctx, record.Interact, ts, started)
	if err != nil {
		return CycleStats{}, err
	}
	stats.Interact = interactStats

	ts, err = e.store.Tier(record.Insights)
	if err != nil {
		return CycleStats{}, err
	}
	insightsStats, err := e.runTier(ctx, record.Insights, ts, started)
	if err != nil {
		return CycleStats{}, err
	}
	stats.Insights = insightsStats

	stats.Duration = time.Since(started)
	return stats, nil
}

// runTier scans every record currently in tier, deciding per record
// whether it expires, promotes, or stays, bounded to ml_batch_size
// concurrent record evaluations.
func (e *Engine) runTier(ctx context.Context, t record.Tier, ts store.TierStore, now time.Time) (TierStats, error) {
	var records []*record.Record
	err := ts.IterTier(ctx, func(r *record.Record) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		return TierStats{}, fmt.Errorf("promotion: scan tier %s: %w", t, err)
	}

	var (
		mu    sync.Mutex
		stats TierStats
	)
	stats.Scanned = len(records)

	limit := e.cfg.MLBatchSize
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, r := range records {
		r := r
		g.Go(func() error {
			outcome := e.evaluate(gctx, t, r, now)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomePromoted:
				stats.Promoted++
			case outcomeExpired:
				stats.Expired++
			case outcomeSuppressed:
				stats.Suppressed++
			case outcomeFailed:
				stats.Failed++
			}
			return nil
		})
	}
	_ = g.Wait() // evaluate never returns an error: per-record failures are captured as outcomeFailed
	return stats, nil
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomePromoted
	outcomeExpired
	outcomeSuppressed
	outcomeFailed
)

// evaluate decides and, where applicable, executes the fate of one record:
// expire, promote, suppress, or leave untouched. Errors performing a
// decided move are logged and reported as outcomeFailed; they never
// propagate to the caller, so one bad record cannot abort the cycle.
func (e *Engine) evaluate(ctx context.Context, t record.Tier, r *record.Record, now time.Time) outcome {
	age := now.Sub(r.CreatedAt)

	if e.expired(t, r, now) {
		if err := e.tier.Delete(ctx, t, r.ID.String()); err != nil {
			slog.Warn("promotion: expire failed", slog.String("id", r.ID.String()), slog.String("tier", t.String()), slog.String("error", err.Error()))
			return outcomeFailed
		}
		return outcomeExpired
	}

	target, ok := t.Next()
	if !ok {
		return outcomeNone
	}

	if !r.LastPromotedAt.IsZero() && now.Sub(r.LastPromotedAt) < e.cfg.MinRepromotionInterval {
		return outcomeSuppressed
	}

	criteria, err := record.DefaultForTiers(t, target)
	if err != nil {
		return outcomeNone
	}
	accessInterval := now.Sub(r.LastAccess)
	if !criteria.Satisfies(r.AccessCount, age, accessInterval, r.Score, false) {
		return outcomeNone
	}

	if e.cfg.MLScoringEnabled {
		score := Score(e.features(r, age, accessInterval))
		if score < e.cfg.MLScoreThreshold {
			return outcomeSuppressed
		}
	}

	moved := *r
	moved.Tier = target
	moved.LastPromotedAt = now
	if err := e.tier.Insert(ctx, &moved); err != nil {
		slog.Warn("promotion: insert into target failed, record retained in source", slog.String("id", r.ID.String()), slog.String("target", target.String()), slog.String("error", err.Error()))
		return outcomeFailed
	}
	if err := e.tier.Delete(ctx, t, r.ID.String()); err != nil {
		slog.Warn("promotion: delete from source failed after target insert succeeded", slog.String("id", r.ID.String()), slog.String("source", t.String()), slog.String("error", err.Error()))
		return outcomeFailed
	}
	return outcomePromoted
}

// expired reports whether r has gone untouched past its tier's TTL (or its
// own TTL override, when set). Untouched is approximated as
// AccessCount==0, since access count only ever increases.
func (e *Engine) expired(t record.Tier, r *record.Record, now time.Time) bool {
	if r.AccessCount != 0 {
		return false
	}
	ttl := e.tierTTL(t)
	if r.TTL > 0 {
		ttl = r.TTL
	}
	if ttl <= 0 {
		return false
	}
	return now.Sub(r.CreatedAt) >= ttl
}

// features builds the ML scorer's six-dimensional feature vector for r.
// TagPopularity is approximated from the record's own tag count (a full
// cross-tier tag-frequency pass is not worth a per-cycle scan): untagged
// records score 0, and every tag up to 5 adds an equal share of 1.
func (e *Engine) features(r *record.Record, age, recency time.Duration) Features {
	ageSeconds := age.Seconds()
	accessRate := 0.0
	if ageSeconds > 0 {
		accessRate = float64(r.AccessCount) / ageSeconds
	}
	tagPopularity := float64(len(r.Tags)) / 5.0
	if tagPopularity > 1.0 {
		tagPopularity = 1.0
	}
	return Features{
		AccessCount:    float64(r.AccessCount),
		AgeSeconds:     ageSeconds,
		RecencySeconds: recency.Seconds(),
		AccessRate:     accessRate,
		TagPopularity:  tagPopularity,
		CurrentScore:   r.Score,
	}
}

var _ tier.Promoter = (*Engine)(nil)
