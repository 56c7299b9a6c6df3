package query

import (
	"strings"
	"sync"
)

// generations orders backend reads against invalidations. A read that began
// before an invalidation covering its key must not be cached after it.
type generations struct {
	mu       sync.Mutex
	seq      uint64
	inflight map[string]int
	dropped  map[string]uint64
}

// begin registers an in-flight read of key and returns the current generation.
func (g *generations) begin(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight == nil {
		g.inflight = map[string]int{}
	}
	g.inflight[key]++
	return g.seq
}

// end releases a read registered by begin. Invalidation history is only kept
// while some read could still be affected by it.
func (g *generations) end(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[key] <= 1 {
		delete(g.inflight, key)
	} else {
		g.inflight[key]--
	}
	if len(g.inflight) == 0 {
		g.dropped = nil
	}
}

// invalidate records an invalidation of prefix and returns the in-flight keys it covers.
func (g *generations) invalidate(prefix string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	if len(g.inflight) == 0 {
		return nil
	}
	if g.dropped == nil {
		g.dropped = map[string]uint64{}
	}
	g.dropped[prefix] = g.seq

	var covered []string
	for key := range g.inflight {
		if strings.HasPrefix(key, prefix) {
			covered = append(covered, key)
		}
	}
	return covered
}

// invalidatedSince reports whether key was invalidated after generation since.
func (g *generations) invalidatedSince(key string, since uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for prefix, seq := range g.dropped {
		if seq > since && strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
