// Package store persists Records per tier: a SQLite table backs
// put/get/delete plus time_index/score_index range scans, and an in-memory
// Bleve index answers tag-membership queries, rebuilt from the SQLite table
// on open. Every tier gets its own directory and file lock under
// DataDir/data/<tier>, so a single process can hold all three tiers open
// while excluding any other process from writing the same tier; the
// embedding cache and promotion/health state live in DataDir/cache and
// DataDir/system respectively, managed by their own components.
package store

import (
	"context"
	"time"

	"github.com/magray-run/agentcore/internal/record"
)

// TierStore is the per-tier persistence contract: put/get/delete/iter plus
// the range queries the promotion engine scans through, and tag-membership
// lookups (TagMembers).
type TierStore interface {
	// Put upserts a record. The SQLite row and its time/score indexes change
	// together; the in-memory tag index is updated afterwards, not in the
	// same transaction.
	Put(ctx context.Context, r *record.Record) error
	// Get returns the record for id, or a NotFound error.
	Get(ctx context.Context, id string) (*record.Record, error)
	// Delete removes a record by id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
	// IterTier calls fn for every record in the tier, in unspecified order.
	// fn returning an error stops iteration and propagates the error.
	IterTier(ctx context.Context, fn func(*record.Record) error) error
	// RangeByTime returns every record with created_at in [from, to].
	RangeByTime(ctx context.Context, from, to time.Time) ([]*record.Record, error)
	// RangeByScore returns every record with score in [lo, hi].
	RangeByScore(ctx context.Context, lo, hi float64) ([]*record.Record, error)
	// Count returns the number of records in the tier.
	Count(ctx context.Context) (int, error)
	// Stats returns summary statistics for the tier.
	Stats(ctx context.Context) (Stats, error)
	// TagMembers returns the ids of every record carrying tag.
	TagMembers(ctx context.Context, tag string) ([]string, error)
	// Close releases the tier's database connections and file lock.
	Close() error
}

// Stats summarizes a tier's current contents.
type Stats struct {
	Count           int
	OldestCreatedAt time.Time
	NewestCreatedAt time.Time
	AvgScore        float64
}
