package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/magray-run/agentcore/internal/config"
	"github.com/magray-run/agentcore/internal/record"
)

// tierStore composes the durable primary record store with the in-memory
// tag index and the cross-process tier lock, presenting the full TierStore
// contract. The tag index is rebuilt from the primary store on open, per
// the "rebuild indices from primary on open" failure-semantics contract.
type tierStore struct {
	primary *SQLiteTierStore
	tags    *TagIndex
	lock    *TierLock
}

func newTierStore(dataDir string, tier record.Tier) (*tierStore, error) {
	lock := NewTierLock(dataDir)
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("store: lock tier %s: %w", tier, err)
	}

	primaryPath := filepath.Join(dataDir, tier.String()+".db")
	primary, err := NewSQLiteTierStore(primaryPath, tier)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("store: open primary for tier %s: %w", tier, err)
	}

	tags, err := NewTagIndex("")
	if err != nil {
		_ = primary.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("store: open tag index for tier %s: %w", tier, err)
	}

	ts := &tierStore{primary: primary, tags: tags, lock: lock}
	if err := ts.rebuildTagIndex(); err != nil {
		_ = ts.Close()
		return nil, fmt.Errorf("store: rebuild tag index for tier %s: %w", tier, err)
	}
	return ts, nil
}

func (t *tierStore) rebuildTagIndex() error {
	return t.primary.IterTier(context.Background(), func(r *record.Record) error {
		return t.tags.Put(r.ID.String(), tagList(r.Tags))
	})
}

func (t *tierStore) Put(ctx context.Context, r *record.Record) error {
	if err := t.primary.Put(ctx, r); err != nil {
		return err
	}
	return t.tags.Put(r.ID.String(), tagList(r.Tags))
}

func (t *tierStore) Get(ctx context.Context, id string) (*record.Record, error) {
	return t.primary.Get(ctx, id)
}

func (t *tierStore) Delete(ctx context.Context, id string) error {
	if err := t.primary.Delete(ctx, id); err != nil {
		return err
	}
	return t.tags.Delete(id)
}

func (t *tierStore) IterTier(ctx context.Context, fn func(*record.Record) error) error {
	return t.primary.IterTier(ctx, fn)
}

func (t *tierStore) RangeByTime(ctx context.Context, from, to time.Time) ([]*record.Record, error) {
	return t.primary.RangeByTime(ctx, from, to)
}

func (t *tierStore) RangeByScore(ctx context.Context, lo, hi float64) ([]*record.Record, error) {
	return t.primary.RangeByScore(ctx, lo, hi)
}

func (t *tierStore) Count(ctx context.Context) (int, error) {
	return t.primary.Count(ctx)
}

func (t *tierStore) Stats(ctx context.Context) (Stats, error) {
	return t.primary.Stats(ctx)
}

func (t *tierStore) TagMembers(ctx context.Context, tag string) ([]string, error) {
	return t.tags.Members(tag)
}

func (t *tierStore) Close() error {
	var errs []error
	if err := t.tags.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := t.primary.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := t.lock.Unlock(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("store: close tier: %v", errs)
	}
	return nil
}

var _ TierStore = (*tierStore)(nil)

// Store is the top-level record store: one TierStore per tier, each
// rooted under cfg.DataDir/data/<tier>/, matching the data/cache/system
// directory layout (cache/ and system/ are opened separately by the
// embedding cache and the promotion/health components, which own those
// schemas).
type Store struct {
	mu    sync.RWMutex
	cfg   config.StoreConfig
	tiers map[record.Tier]*tierStore
}

// Open creates (or opens) the store's data directory layout and locks
// every tier.
func Open(cfg config.StoreConfig) (*Store, error) {
	s := &Store{cfg: cfg, tiers: make(map[record.Tier]*tierStore)}

	for _, tier := range []record.Tier{record.Interact, record.Insights, record.Assets} {
		dir := filepath.Join(cfg.DataDir, "data", tier.String())
		ts, err := newTierStore(dir, tier)
		if err != nil {
			s.closeOpened()
			return nil, err
		}
		s.tiers[tier] = ts
	}
	return s, nil
}

func (s *Store) closeOpened() {
	for _, ts := range s.tiers {
		_ = ts.Close()
	}
}

// Tier returns the TierStore for the given tier.
func (s *Store) Tier(tier record.Tier) (TierStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.tiers[tier]
	if !ok {
		return nil, fmt.Errorf("store: unknown tier %s", tier)
	}
	return ts, nil
}

// CacheDir returns the directory the embedding cache's overflow database
// should live in, per the data/cache/system layout.
func (s *Store) CacheDir() string {
	return filepath.Join(s.cfg.DataDir, "cache")
}

// SystemDir returns the directory the promotion/health components should
// persist durable state in, per the data/cache/system layout.
func (s *Store) SystemDir() string {
	return filepath.Join(s.cfg.DataDir, "system")
}

// Close closes every tier's store and releases its lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for tier, ts := range s.tiers {
		if err := ts.Close(); err != nil {
			errs = append(errs, fmt.Errorf("tier %s: %w", tier, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("store: close: %v", errs)
	}
	return nil
}
