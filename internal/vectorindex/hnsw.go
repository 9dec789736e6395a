package vectorindex

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWIndex is an approximate nearest-neighbor index backed by
// github.com/coder/hnsw, a pure-Go HNSW graph. Deletions are lazy
// (tombstoned) to avoid a known coder/hnsw issue where removing the last
// node corrupts the graph; Rebuild() reconstructs a tombstone-free graph
// from the live entries when the caller decides the ratio warrants it.
type HNSWIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	cfg    Config

	idToKey map[string]uint64
	keyToID map[uint64]string
	// vectors mirrors what's stored in the graph, keyed the same way, so
	// Rebuild can reconstruct a tombstone-free graph without depending on
	// a node-lookup-by-key method the graph library may not expose.
	vectors map[uint64][]float32
	nextKey uint64

	closed bool
}

type hnswMetadata struct {
	IDToKey map[string]uint64
	Vectors map[uint64][]float32
	NextKey uint64
	Cfg     Config
}

// NewHNSWIndex builds an empty HNSW index from cfg.
func NewHNSWIndex(cfg Config) *HNSWIndex {
	if cfg.Metric == "" {
		cfg.Metric = "cos"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 100
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWIndex{
		graph:   graph,
		cfg:     cfg,
		idToKey: make(map[string]uint64),
		keyToID: make(map[uint64]string),
		vectors: make(map[uint64][]float32),
	}
}

func (h *HNSWIndex) Add(ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return ErrLengthMismatch{IDs: len(ids), Vectors: len(vectors)}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed{}
	}

	for _, v := range vectors {
		if len(v) != h.cfg.Dimensions {
			return ErrDimensionMismatch{Expected: h.cfg.Dimensions, Got: len(v)}
		}
	}

	for i, id := range ids {
		if oldKey, exists := h.idToKey[id]; exists {
			delete(h.keyToID, oldKey)
			delete(h.idToKey, id)
			delete(h.vectors, oldKey)
		}

		key := h.nextKey
		h.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		if h.cfg.Metric == "cos" {
			normalize(vec)
		}

		h.graph.Add(hnsw.MakeNode(key, vec))
		h.idToKey[id] = key
		h.keyToID[key] = id
		h.vectors[key] = vec
	}

	return nil
}

func (h *HNSWIndex) Remove(ids []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed{}
	}

	for _, id := range ids {
		if key, exists := h.idToKey[id]; exists {
			delete(h.keyToID, key)
			delete(h.idToKey, id)
		}
	}
	return nil
}

func (h *HNSWIndex) Search(query []float32, k int) ([]Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil, ErrClosed{}
	}
	if len(query) != h.cfg.Dimensions {
		return nil, ErrDimensionMismatch{Expected: h.cfg.Dimensions, Got: len(query)}
	}
	if h.graph.Len() == 0 || k <= 0 {
		return []Result{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if h.cfg.Metric == "cos" {
		normalize(q)
	}

	// Over-fetch to absorb tombstoned nodes still resident in the graph.
	fetch := k
	if orphans := h.graph.Len() - len(h.idToKey); orphans > 0 {
		fetch += orphans
	}
	nodes := h.graph.Search(q, fetch)

	results := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		id, ok := h.keyToID[node.Key]
		if !ok {
			continue
		}
		dist := h.graph.Distance(q, node.Value)
		results = append(results, Result{ID: id, Distance: dist, Score: distanceToScore(dist)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Rebuild reconstructs the graph from only the live entries, discarding
// tombstoned nodes. Keys are renumbered from zero.
func (h *HNSWIndex) Rebuild() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed{}
	}

	fresh := hnsw.NewGraph[uint64]()
	fresh.Distance = h.graph.Distance
	fresh.M = h.cfg.M
	fresh.EfSearch = h.cfg.EfSearch
	fresh.Ml = 0.25

	newIDToKey := make(map[string]uint64, len(h.idToKey))
	newKeyToID := make(map[uint64]string, len(h.idToKey))
	newVectors := make(map[uint64][]float32, len(h.idToKey))
	var nextKey uint64

	ids := make([]string, 0, len(h.idToKey))
	for id := range h.idToKey {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		oldKey := h.idToKey[id]
		vec, ok := h.vectors[oldKey]
		if !ok {
			continue
		}
		key := nextKey
		nextKey++
		fresh.Add(hnsw.MakeNode(key, vec))
		newIDToKey[id] = key
		newKeyToID[key] = id
		newVectors[key] = vec
	}

	h.graph = fresh
	h.idToKey = newIDToKey
	h.keyToID = newKeyToID
	h.vectors = newVectors
	h.nextKey = nextKey
	return nil
}

// OptimizeMemory compacts the id maps, dropping any stale capacity left
// over from repeated add/remove churn. The HNSW graph itself has no
// exposed compaction hook beyond Rebuild.
func (h *HNSWIndex) OptimizeMemory() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	compactIDToKey := make(map[string]uint64, len(h.idToKey))
	for k, v := range h.idToKey {
		compactIDToKey[k] = v
	}
	compactKeyToID := make(map[uint64]string, len(h.keyToID))
	for k, v := range h.keyToID {
		compactKeyToID[k] = v
	}
	compactVectors := make(map[uint64][]float32, len(h.idToKey))
	for _, key := range h.idToKey {
		compactVectors[key] = h.vectors[key]
	}
	h.idToKey = compactIDToKey
	h.keyToID = compactKeyToID
	h.vectors = compactVectors
}

// NeedsRebuild reports whether the orphan (tombstoned-but-still-resident)
// count exceeds RebuildThreshold or TombstoneRebuildRatio of graph size.
func (h *HNSWIndex) NeedsRebuild() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := h.graph.Len()
	live := len(h.idToKey)
	orphans := total - live
	if orphans <= 0 {
		return false
	}
	if orphans >= h.cfg.RebuildThreshold {
		return true
	}
	if total > 0 && float64(orphans)/float64(total) > h.cfg.TombstoneRebuildRatio {
		return true
	}
	return false
}

func (h *HNSWIndex) Contains(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.idToKey[id]
	return ok
}

func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idToKey)
}

func (h *HNSWIndex) AllIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.idToKey))
	for id := range h.idToKey {
		ids = append(ids, id)
	}
	return ids
}

func (h *HNSWIndex) Save(path string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrClosed{}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("vectorindex: create directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("vectorindex: create index file: %w", err)
	}
	if err := h.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("vectorindex: export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vectorindex: close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vectorindex: rename index file: %w", err)
	}

	return h.saveMetadata(path + ".meta")
}

func (h *HNSWIndex) saveMetadata(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("vectorindex: create metadata file: %w", err)
	}

	meta := hnswMetadata{IDToKey: h.idToKey, Vectors: h.vectors, NextKey: h.nextKey, Cfg: h.cfg}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("vectorindex: encode metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vectorindex: close metadata file: %w", err)
	}
	return os.Rename(tmp, path)
}

func (h *HNSWIndex) Load(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed{}
	}

	if err := h.loadMetadata(path + ".meta"); err != nil {
		return fmt.Errorf("vectorindex: load metadata: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("vectorindex: open index file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	if err := h.graph.Import(reader); err != nil {
		return fmt.Errorf("vectorindex: import graph: %w", err)
	}
	return nil
}

func (h *HNSWIndex) loadMetadata(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open metadata: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("vectorindex: failed to close metadata file", slog.String("error", cerr.Error()))
		}
	}()

	var meta hnswMetadata
	if err := gob.NewDecoder(f).Decode(&meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	h.idToKey = meta.IDToKey
	h.vectors = meta.Vectors
	h.nextKey = meta.NextKey
	h.cfg = meta.Cfg
	h.keyToID = make(map[uint64]string, len(h.idToKey))
	for id, key := range h.idToKey {
		h.keyToID[key] = id
	}
	return nil
}

func (h *HNSWIndex) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.graph = nil
	return nil
}

var _ Index = (*HNSWIndex)(nil)
