package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)

	agenterrors "github.com/magray-run/agentcore/internal/errors"
	"github.com/magray-run/agentcore/internal/record"
)

// SQLiteTierStore is the primary per-tier record store: a records table
// plus time_index/score_index SQL indices for the promotion engine's
// range scans. Tag membership is handled separately by TagIndex; tierStore
// (store.go) composes the two into the full TierStore contract. The
// connection setup (WAL mode, single-writer pool, busy timeout) is
// generalized from an FTS5 document index to a tiered record store.
type SQLiteTierStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	tier   record.Tier
	closed bool
}

// NewSQLiteTierStore opens (creating if needed) the SQLite database at path
// and ensures its schema exists. path == "" opens an in-memory database,
// used by tests. Since each database file belongs to exactly one tier, the
// tier itself is not a stored column; it is stamped onto every record
// returned by Get/IterTier/RangeBy* instead.
func NewSQLiteTierStore(path string, tier record.Tier) (*SQLiteTierStore, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY under the tier's own RWMutex
	// discipline; readers still serialize through the same connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: set pragma %q: %w", p, err)
		}
	}

	s := &SQLiteTierStore{db: db, path: path, tier: tier}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteTierStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS records (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		text         TEXT NOT NULL,
		embedding    BLOB NOT NULL,
		project      TEXT NOT NULL DEFAULT '',
		session      TEXT NOT NULL DEFAULT '',
		tags         TEXT NOT NULL DEFAULT '[]',
		score        REAL NOT NULL DEFAULT 0,
		created_at   INTEGER NOT NULL,
		last_access  INTEGER NOT NULL,
		access_count INTEGER NOT NULL DEFAULT 0,
		ttl_ns       INTEGER NOT NULL DEFAULT 0,
		last_promoted_at INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS time_index ON records(created_at);
	CREATE INDEX IF NOT EXISTS score_index ON records(score, created_at);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

// Put upserts r into the primary table. Tag membership is a derived index
// maintained separately by tierStore (store.go), which also calls this.
func (s *SQLiteTierStore) Put(ctx context.Context, r *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}

	embBytes, err := encodeEmbedding(r.Embedding)
	if err != nil {
		return agenterrors.InvalidRecord(err)
	}
	tagsJSON, err := json.Marshal(tagList(r.Tags))
	if err != nil {
		return agenterrors.InvalidRecord(err)
	}
	var lastPromotedNS int64
	if !r.LastPromotedAt.IsZero() {
		lastPromotedNS = r.LastPromotedAt.UnixNano()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records(id, kind, text, embedding, project, session, tags, score, created_at, last_access, access_count, ttl_ns, last_promoted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind=excluded.kind, text=excluded.text, embedding=excluded.embedding,
			project=excluded.project, session=excluded.session, tags=excluded.tags,
			score=excluded.score, created_at=excluded.created_at, last_access=excluded.last_access,
			access_count=excluded.access_count, ttl_ns=excluded.ttl_ns, last_promoted_at=excluded.last_promoted_at
	`,
		r.ID.String(), r.Kind, r.Text, embBytes, r.Project, r.Session, string(tagsJSON),
		r.Score, r.CreatedAt.UnixNano(), r.LastAccess.UnixNano(), r.AccessCount, int64(r.TTL), lastPromotedNS)
	if err != nil {
		return fmt.Errorf("store: upsert record: %w", err)
	}
	return nil
}

// Get returns the record for id, or a NotFound AgentError.
func (s *SQLiteTierStore) Get(ctx context.Context, id string) (*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store: closed")
	}

	row := s.db.QueryRowContext(ctx, `SELECT id, kind, text, embedding, project, session, tags, score, created_at, last_access, access_count, ttl_ns, last_promoted_at FROM records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, agenterrors.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get record: %w", err)
	}
	r.Tier = s.tier
	return r, nil
}

// Delete removes a record by id from the primary table.
func (s *SQLiteTierStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete record: %w", err)
	}
	return nil
}

// IterTier streams every record in the tier through fn.
func (s *SQLiteTierStore) IterTier(ctx context.Context, fn func(*record.Record) error) error {
	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, text, embedding, project, session, tags, score, created_at, last_access, access_count, ttl_ns, last_promoted_at FROM records`)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("store: iter tier: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return fmt.Errorf("store: scan record: %w", err)
		}
		r.Tier = s.tier
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// RangeByTime returns every record with created_at in [from, to], using
// time_index to avoid a full scan.
func (s *SQLiteTierStore) RangeByTime(ctx context.Context, from, to time.Time) ([]*record.Record, error) {
	return s.queryRange(ctx, `SELECT id, kind, text, embedding, project, session, tags, score, created_at, last_access, access_count, ttl_ns, last_promoted_at FROM records WHERE created_at BETWEEN ? AND ? ORDER BY created_at`,
		from.UnixNano(), to.UnixNano())
}

// RangeByScore returns every record with score in [lo, hi], using
// score_index to avoid a full scan.
func (s *SQLiteTierStore) RangeByScore(ctx context.Context, lo, hi float64) ([]*record.Record, error) {
	return s.queryRange(ctx, `SELECT id, kind, text, embedding, project, session, tags, score, created_at, last_access, access_count, ttl_ns, last_promoted_at FROM records WHERE score BETWEEN ? AND ? ORDER BY score`,
		lo, hi)
}

func (s *SQLiteTierStore) queryRange(ctx context.Context, query string, args ...any) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store: closed")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: range query: %w", err)
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		r.Tier = s.tier
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of records in the tier.
func (s *SQLiteTierStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, fmt.Errorf("store: closed")
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Stats returns summary statistics for the tier.
func (s *SQLiteTierStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Stats{}, fmt.Errorf("store: closed")
	}

	var count int
	var oldest, newest sql.NullInt64
	var avgScore sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), MIN(created_at), MAX(created_at), AVG(score) FROM records`).
		Scan(&count, &oldest, &newest, &avgScore)
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}

	st := Stats{Count: count, AvgScore: avgScore.Float64}
	if oldest.Valid {
		st.OldestCreatedAt = time.Unix(0, oldest.Int64).UTC()
	}
	if newest.Valid {
		st.NewestCreatedAt = time.Unix(0, newest.Int64).UTC()
	}
	return st, nil
}

// Close closes the underlying database connection. Idempotent.
func (s *SQLiteTierStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*record.Record, error) {
	var (
		idStr, kind, text, project, session, tagsJSON    string
		embBytes                                         []byte
		score                                             float64
		createdAtNS, lastAccessNS, ttlNS, lastPromotedNS int64
		accessCount                                       uint64
	)
	if err := row.Scan(&idStr, &kind, &text, &embBytes, &project, &session, &tagsJSON, &score, &createdAtNS, &lastAccessNS, &accessCount, &ttlNS, &lastPromotedNS); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	embedding, err := decodeEmbedding(embBytes)
	if err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	var tagSlice []string
	if err := json.Unmarshal([]byte(tagsJSON), &tagSlice); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	tags := make(map[string]struct{}, len(tagSlice))
	for _, t := range tagSlice {
		tags[t] = struct{}{}
	}

	r := &record.Record{
		ID:          id,
		Kind:        kind,
		Text:        text,
		Embedding:   embedding,
		Tags:        tags,
		Project:     project,
		Session:     session,
		Score:       score,
		CreatedAt:   time.Unix(0, createdAtNS).UTC(),
		LastAccess:  time.Unix(0, lastAccessNS).UTC(),
		AccessCount: accessCount,
		TTL:         time.Duration(ttlNS),
	}
	if lastPromotedNS != 0 {
		r.LastPromotedAt = time.Unix(0, lastPromotedNS).UTC()
	}
	return r, nil
}

func tagList(tags map[string]struct{}) []string {
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	return out
}

// encodeEmbedding packs a []float32 into a little-endian byte blob.
func encodeEmbedding(v []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeEmbedding unpacks a little-endian byte blob into a []float32.
func decodeEmbedding(b []byte) ([]float32, error) {
	n := len(b) / 4
	v := make([]float32, n)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return v, nil
}
