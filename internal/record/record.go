// Package record defines the core data model shared by every tier of the
// memory engine: Record, Tier, and the validation/promotion-criteria rules
// that govern how records move between tiers.
package record

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Tier identifies one of the three lifetime tiers a Record can live in.
type Tier int

const (
	// Interact holds freshly inserted, short-lived records.
	Interact Tier = iota
	// Insights holds records promoted out of Interact that have shown
	// repeated access.
	Insights
	// Assets holds long-lived, high-value records promoted out of Insights.
	Assets
)

// String returns the lower-case tier name used in logs, metrics, and paths.
func (t Tier) String() string {
	switch t {
	case Interact:
		return "interact"
	case Insights:
		return "insights"
	case Assets:
		return "assets"
	default:
		return "unknown"
	}
}

// Next returns the tier this tier promotes into, and false if t is already
// the terminal tier (Assets).
func (t Tier) Next() (Tier, bool) {
	switch t {
	case Interact:
		return Insights, true
	case Insights:
		return Assets, true
	default:
		return Assets, false
	}
}

const (
	// maxTextLength is the bound on normalized record text: 10 KiB.
	maxTextLength = 10 << 10
	// normEpsilon bounds how far an embedding's L2-norm may drift from 1.0
	// and still be considered unit-normalized.
	normEpsilon = 1e-4
)

// Record is one stored unit of memory: its text, its embedding, and the
// bookkeeping fields the tier engine and promotion engine use to decide
// where it lives and whether it stays.
type Record struct {
	ID             uuid.UUID
	Kind           string
	Text           string
	Embedding      []float32
	Tier           Tier
	Tags           map[string]struct{}
	Project        string
	Session        string
	Score          float64
	CreatedAt      time.Time
	LastAccess     time.Time
	AccessCount    uint64
	TTL            time.Duration // zero means no expiry
	LastPromotedAt time.Time     // zero means never promoted
}

// New creates a Record with a freshly generated ID and the creation/access
// timestamps set to now (UTC). The record starts in Interact, the tier
// every new record enters per the promotion contract.
func New(kind, text string, embedding []float32) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:          uuid.New(),
		Kind:        kind,
		Text:        text,
		Embedding:   embedding,
		Tier:        Interact,
		Tags:        make(map[string]struct{}),
		CreatedAt:   now,
		LastAccess:  now,
		AccessCount: 0,
	}
}

// Validate enforces the Record invariants: non-empty kind, bounded text,
// unit-normalized embedding, created_at <= last_access, and a well-formed
// ID.
func (r *Record) Validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("record: nil id")
	}
	if r.Kind == "" {
		return fmt.Errorf("record: empty kind")
	}
	if len(r.Text) > maxTextLength {
		return fmt.Errorf("record: text exceeds %d bytes", maxTextLength)
	}
	if len(r.Embedding) == 0 {
		return fmt.Errorf("record: empty embedding")
	}
	if err := checkUnitNorm(r.Embedding); err != nil {
		return err
	}
	if r.CreatedAt.After(r.LastAccess) {
		return fmt.Errorf("record: created_at after last_access")
	}
	return nil
}

// checkUnitNorm reports an error if v's L2-norm is not within normEpsilon
// of 1.0.
func checkUnitNorm(v []float32) error {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSquares)
	if math.Abs(norm-1.0) > normEpsilon {
		return fmt.Errorf("record: embedding L2-norm %f outside [1-%g, 1+%g]", norm, normEpsilon, normEpsilon)
	}
	return nil
}

// Touch records an access: bumps AccessCount and updates LastAccess to now.
func (r *Record) Touch() {
	r.AccessCount++
	r.LastAccess = time.Now().UTC()
}

// Expired reports whether the record's TTL (if any) has elapsed as of now.
func (r *Record) Expired(now time.Time) bool {
	if r.TTL <= 0 {
		return false
	}
	return now.Sub(r.LastAccess) > r.TTL
}

// HasTag reports whether the record carries the given tag.
func (r *Record) HasTag(tag string) bool {
	_, ok := r.Tags[tag]
	return ok
}

// AddTag adds a tag to the record, initializing the tag set if needed.
func (r *Record) AddTag(tag string) {
	if r.Tags == nil {
		r.Tags = make(map[string]struct{})
	}
	r.Tags[tag] = struct{}{}
}
