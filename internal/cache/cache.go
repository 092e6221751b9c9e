// Package cache provides content digests and an in-process memo for graph analyses.
package cache

import (
	"encoding/hex"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/panbanda/knitgraph/pkg/models"
	"github.com/zeebo/blake3"
)

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HashString is HashBytes for string content.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// GraphKey returns a content hash of a node and edge list. Nodes and edges
// are hashed in slice order, since analysis output follows that order.
func GraphKey(nodes []models.GraphNode, edges []models.Edge) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString("n" + strconv.Itoa(len(nodes)) + "\x00")
	for _, n := range nodes {
		_, _ = d.WriteString(n.ID)
		_, _ = d.WriteString("\x00")
	}
	_, _ = d.WriteString("e" + strconv.Itoa(len(edges)) + "\x00")
	for _, e := range edges {
		_, _ = d.WriteString(e.Key())
		_, _ = d.WriteString("\x00")
	}
	return d.Sum64()
}

// Memo stores computed graph analyses keyed by GraphKey. Safe for concurrent use.
type Memo struct {
	mu      sync.Mutex
	entries map[uint64]*models.GraphAnalysis
	order   []uint64
	limit   int
	hits    int
	misses  int
}

// NewMemo creates a memo holding at most limit analyses (oldest evicted first).
// A limit <= 0 means unbounded.
func NewMemo(limit int) *Memo {
	return &Memo{
		entries: make(map[uint64]*models.GraphAnalysis),
		limit:   limit,
	}
}

// GetOrCompute returns the memoized analysis for the graph or computes and stores it.
func (m *Memo) GetOrCompute(nodes []models.GraphNode, edges []models.Edge, compute func() *models.GraphAnalysis) *models.GraphAnalysis {
	key := GraphKey(nodes, edges)

	m.mu.Lock()
	if a, ok := m.entries[key]; ok {
		m.hits++
		m.mu.Unlock()
		return a
	}
	m.misses++
	m.mu.Unlock()

	a := compute()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		m.entries[key] = a
		m.order = append(m.order, key)
		if m.limit > 0 && len(m.order) > m.limit {
			delete(m.entries, m.order[0])
			m.order = m.order[1:]
		}
	}
	return a
}

// Stats returns memo statistics.
type Stats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// Stats returns a snapshot of memo statistics.
func (m *Memo) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Entries: len(m.entries), Hits: m.hits, Misses: m.misses}
}
