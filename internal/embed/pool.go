package embed

import (
	"sync"
	"sync/atomic"
)

// poolEntry wraps a buffer so Get can tell a freshly allocated buffer
// (New was invoked) apart from one handed back by Put.
type poolEntry struct {
	buf      []float32
	recycled bool
}

// BufferPool reuses []float32 buffers keyed by capacity, avoiding
// per-batch allocations for the input-id/attention-mask/output-tensor
// scratch space embedding providers need. One sync.Pool is kept per
// capacity bucket so a Get always returns a buffer at least that big.
type BufferPool struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool

	gets atomic.Uint64
	puts atomic.Uint64
	hits atomic.Uint64
}

// NewBufferPool builds an empty pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{pools: make(map[int]*sync.Pool)}
}

func (p *BufferPool) poolFor(capacity int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool, ok := p.pools[capacity]
	if !ok {
		pool = &sync.Pool{New: func() any {
			return &poolEntry{buf: make([]float32, 0, capacity)}
		}}
		p.pools[capacity] = pool
	}
	return pool
}

// Get returns a zero-length buffer with capacity >= capacity.
func (p *BufferPool) Get(capacity int) []float32 {
	p.gets.Add(1)

	entry := p.poolFor(capacity).Get().(*poolEntry)
	if entry.recycled {
		p.hits.Add(1)
	}
	return entry.buf[:0]
}

// Put returns buf to the bucket matching its capacity for future reuse.
func (p *BufferPool) Put(buf []float32) {
	p.puts.Add(1)
	capacity := cap(buf)
	if capacity == 0 {
		return
	}
	p.poolFor(capacity).Put(&poolEntry{buf: buf, recycled: true})
}

// PoolStats reports pool usage counters for health reporting.
type PoolStats struct {
	Gets uint64
	Puts uint64
	Hits uint64
}

func (p *BufferPool) Stats() PoolStats {
	return PoolStats{
		Gets: p.gets.Load(),
		Puts: p.puts.Load(),
		Hits: p.hits.Load(),
	}
}
