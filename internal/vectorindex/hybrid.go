package vectorindex

import "sync"

// HybridIndex keeps a LinearIndex and a HNSWIndex in sync and routes reads
// to whichever is appropriate for the current size: exact linear scan
// below Config.LinearSearchThreshold, approximate HNSW at or above it.
// Because both sub-indexes are always populated, crossing the threshold
// needs no migration; reads move from exact results to HNSW's approximate
// ones.
type HybridIndex struct {
	mu     sync.RWMutex
	cfg    Config
	linear *LinearIndex
	hnsw   *HNSWIndex
	closed bool
}

// NewHybridIndex builds a hybrid index from cfg.
func NewHybridIndex(cfg Config) *HybridIndex {
	return &HybridIndex{
		cfg:    cfg,
		linear: NewLinearIndex(cfg),
		hnsw:   NewHNSWIndex(cfg),
	}
}

// active returns the sub-index that should answer reads right now. Caller
// must hold at least a read lock.
func (h *HybridIndex) active() Index {
	if h.linear.Count() < h.cfg.LinearSearchThreshold {
		return h.linear
	}
	return h.hnsw
}

func (h *HybridIndex) Add(ids []string, vectors [][]float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed{}
	}
	if err := h.linear.Add(ids, vectors); err != nil {
		return err
	}
	return h.hnsw.Add(ids, vectors)
}

func (h *HybridIndex) Remove(ids []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed{}
	}
	if err := h.linear.Remove(ids); err != nil {
		return err
	}
	return h.hnsw.Remove(ids)
}

func (h *HybridIndex) Search(query []float32, k int) ([]Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrClosed{}
	}
	return h.active().Search(query, k)
}

// Rebuild reconstructs the HNSW side (lazy tombstones only affect it); the
// linear side has no structural state to rebuild.
func (h *HybridIndex) Rebuild() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed{}
	}
	return h.hnsw.Rebuild()
}

// NeedsRebuild reports whether the HNSW side has accumulated enough
// tombstones to warrant a Rebuild call.
func (h *HybridIndex) NeedsRebuild() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return false
	}
	return h.hnsw.NeedsRebuild()
}

func (h *HybridIndex) OptimizeMemory() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.linear.OptimizeMemory()
	h.hnsw.OptimizeMemory()
}

func (h *HybridIndex) Contains(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return false
	}
	return h.linear.Contains(id)
}

func (h *HybridIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return 0
	}
	return h.linear.Count()
}

func (h *HybridIndex) AllIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil
	}
	return h.linear.AllIDs()
}

// Save persists both sub-indexes; path is used as a shared prefix.
func (h *HybridIndex) Save(path string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed{}
	}
	if err := h.linear.Save(path + ".linear"); err != nil {
		return err
	}
	return h.hnsw.Save(path + ".hnsw")
}

func (h *HybridIndex) Load(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed{}
	}
	if err := h.linear.Load(path + ".linear"); err != nil {
		return err
	}
	return h.hnsw.Load(path + ".hnsw")
}

func (h *HybridIndex) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	_ = h.linear.Close()
	_ = h.hnsw.Close()
	return nil
}

var _ Index = (*HybridIndex)(nil)
