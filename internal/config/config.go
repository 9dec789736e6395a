// Package config holds the plain struct tree of every tunable named across
// the memory engine and tool orchestrator. This package intentionally does
// not parse YAML or environment variables itself: per the system's scope,
// file/env configuration loading belongs to an external CLI/config loader,
// which populates a Config value and passes it in. The Default*()
// constructors here exist so every component can construct sane behavior
// on its own for tests and for callers that don't need custom tuning.
package config

import "time"

// Config is the root configuration value threaded through the composition
// root at startup.
type Config struct {
	VectorIndex VectorIndexConfig
	Embedding   EmbeddingConfig
	Store       StoreConfig
	Tier        TierConfig
	Promotion   PromotionConfig
	Health      HealthConfig
	Tool        ToolConfig
	Orchestrator OrchestratorConfig
}

// Default returns a Config with every section's defaults applied.
func Default() Config {
	return Config{
		VectorIndex:  DefaultVectorIndexConfig(),
		Embedding:    DefaultEmbeddingConfig(),
		Store:        DefaultStoreConfig(),
		Tier:         DefaultTierConfig(),
		Promotion:    DefaultPromotionConfig(),
		Health:       DefaultHealthConfig(),
		Tool:         DefaultToolConfig(),
		Orchestrator: DefaultOrchestratorConfig(),
	}
}

// VectorIndexConfig tunes the HNSW/linear hybrid vector index (component B).
type VectorIndexConfig struct {
	// Metric selects the distance function: "cos" (cosine) is the only
	// metric this repo implements.
	Metric string
	// M is the HNSW max-neighbors-per-node parameter.
	M int
	// EfConstruction controls index-build recall/speed tradeoff.
	EfConstruction int
	// EfSearch controls query-time recall/speed tradeoff.
	EfSearch int
	// LinearSearchThreshold: indices with fewer than this many live
	// vectors use exact brute-force search instead of HNSW.
	LinearSearchThreshold int
	// RebuildThreshold: an absolute tombstone count that triggers a
	// rebuild regardless of ratio.
	RebuildThreshold int
	// TombstoneRebuildRatio: fraction of tombstoned nodes that triggers
	// an index rebuild.
	TombstoneRebuildRatio float64
}

// DefaultVectorIndexConfig mirrors the HNSW defaults.
func DefaultVectorIndexConfig() VectorIndexConfig {
	return VectorIndexConfig{
		Metric:                "cos",
		M:                     16,
		EfConstruction:        200,
		EfSearch:              100,
		LinearSearchThreshold: 1000,
		RebuildThreshold:      100,
		TombstoneRebuildRatio: 0.1,
	}
}

// EmbeddingConfig tunes the embedding/reranker service (component A).
type EmbeddingConfig struct {
	Provider         string
	Dimensions       int
	MinBatchSize     int
	MaxBatchSize     int
	DefaultBatchSize int
	WarmTimeout      time.Duration
	ColdTimeout      time.Duration
	MaxRetries       int
	CacheEnabled     bool
	CacheSize        int
}

// DefaultEmbeddingConfig mirrors the reference batching/timeout constants.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:         "static",
		Dimensions:       256,
		MinBatchSize:     1,
		MaxBatchSize:     256,
		DefaultBatchSize: 32,
		WarmTimeout:      120 * time.Second,
		ColdTimeout:      180 * time.Second,
		MaxRetries:       3,
		CacheEnabled:     true,
		CacheSize:        1000,
	}
}

// StoreConfig tunes the record store (component C).
type StoreConfig struct {
	// DataDir is the root of the persisted state directory layout
	// (data/, cache/, system/ per tier).
	DataDir string
	// FsyncEveryWrite forces an fsync after every write when true;
	// otherwise the store batches fsyncs on a timer.
	FsyncEveryWrite bool
	FsyncInterval   time.Duration
}

// DefaultStoreConfig returns sensible store defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DataDir:         "./data",
		FsyncEveryWrite: false,
		FsyncInterval:   time.Second,
	}
}

// TierConfig tunes the tier engine's two-stage retrieval (component D).
type TierConfig struct {
	// CandidateMultiplier controls the first-stage candidate fan-out:
	// candidates = max(top_k * CandidateMultiplier, CandidateFloor).
	CandidateMultiplier int
	CandidateFloor      int
	MinScore            float64
	EmbeddingCacheSize  int
}

// DefaultTierConfig mirrors the N=max(top_k*3,50) contract.
func DefaultTierConfig() TierConfig {
	return TierConfig{
		CandidateMultiplier: 3,
		CandidateFloor:      50,
		MinScore:            0.0,
		EmbeddingCacheSize:  1000,
	}
}

// PromotionConfig tunes the promotion engine (component E).
type PromotionConfig struct {
	MLBatchSize            int
	MinRepromotionInterval time.Duration
	MLScoringEnabled       bool
	MLScoreThreshold       float64
	CronSchedule           string
	// InteractTTL/InsightsTTL bound how long a record may sit untouched
	// (AccessCount==0) in that tier before it expires outright instead of
	// being promoted. AssetsTTL is zero: Assets is unbounded.
	InteractTTL time.Duration
	InsightsTTL time.Duration
	AssetsTTL   time.Duration
}

// DefaultPromotionConfig holds the default promotion thresholds. ML scoring
// is optional and layered on top of the rule gate (component E); it is off
// by default so the rule gate alone decides promotion until an operator
// opts into the ML layer and calibrates MLScoreThreshold for their data.
func DefaultPromotionConfig() PromotionConfig {
	return PromotionConfig{
		MLBatchSize:            64,
		MinRepromotionInterval: 24 * time.Hour,
		MLScoringEnabled:       false,
		MLScoreThreshold:       0.7,
		CronSchedule:           "@every 15m",
		InteractTTL:            6 * time.Hour,
		InsightsTTL:            14 * 24 * time.Hour,
		AssetsTTL:              0,
	}
}

// HealthConfig tunes the health/metrics core (component F).
type HealthConfig struct {
	RollingWindowSize int
}

// DefaultHealthConfig returns sensible health-tracking defaults.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{RollingWindowSize: 100}
}

// ToolConfig tunes the tool registry and sandbox (component H).
type ToolConfig struct {
	MaxOutputKB     int
	DefaultTimeout  time.Duration
	ManifestDir     string
}

// DefaultToolConfig mirrors original_source's shell tool defaults.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		MaxOutputKB:    256,
		DefaultTimeout: 30 * time.Second,
		ManifestDir:    "./tools",
	}
}

// OrchestratorConfig tunes the intent classifier/planner/executor (component I).
type OrchestratorConfig struct {
	MaxConcurrentTools int
	ClassifierCacheSize int
	StepTimeout         time.Duration
}

// DefaultOrchestratorConfig returns sensible orchestrator defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxConcurrentTools:  8,
		ClassifierCacheSize: 10000,
		StepTimeout:         30 * time.Second,
	}
}
