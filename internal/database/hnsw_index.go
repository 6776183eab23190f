package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// EncodingIndex wraps an HNSW graph over voter encodings for fast 1:N
// nearest-neighbor search. The voter roll is small today, so a linear scan
// would also work; the index keeps probe latency flat as the roll grows.
type EncodingIndex struct {
	graph      *hnsw.Graph[string]
	identities map[string]*StoredEncoding
	mu         sync.RWMutex
}

// NewEncodingIndex creates a new empty encoding index.
func NewEncodingIndex() *EncodingIndex {
	return &EncodingIndex{
		identities: make(map[string]*StoredEncoding),
	}
}

func newEncodingGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index contents with the given encodings.
func (ix *EncodingIndex) Build(encodings []StoredEncoding) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(encodings) == 0 {
		ix.graph = nil
		ix.identities = make(map[string]*StoredEncoding)
		return
	}

	g := newEncodingGraph()
	ix.identities = make(map[string]*StoredEncoding, len(encodings))
	for i := range encodings {
		enc := &encodings[i]
		if len(enc.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(enc.Identity, enc.Embedding))
		ix.identities[enc.Identity] = enc
	}
	ix.graph = g
}

// Add inserts or replaces a single encoding. Re-adding an identity replaces
// its vector in the graph, matching the overwrite-on-reregistration policy.
func (ix *EncodingIndex) Add(enc *StoredEncoding) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(enc.Embedding) == 0 {
		return
	}
	if ix.graph == nil {
		ix.graph = newEncodingGraph()
	}
	ix.graph.Add(hnsw.MakeNode(enc.Identity, enc.Embedding))
	ix.identities[enc.Identity] = enc
}

// Nearest returns up to k identities closest to the probe, with exact
// cosine distances recomputed from the stored vectors.
func (ix *EncodingIndex) Nearest(probe []float32, k int) ([]string, []float64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	neighbors := ix.graph.Search(probe, k)
	ids := make([]string, 0, len(neighbors))
	distances := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		// Skip identities dropped from the lookup map.
		if _, ok := ix.identities[n.Key]; !ok {
			continue
		}
		ids = append(ids, n.Key)
		distances = append(distances, CosineDistance(probe, n.Value))
	}
	return ids, distances, nil
}

// Get returns the encoding for an identity, or nil.
func (ix *EncodingIndex) Get(identity string) *StoredEncoding {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.identities[identity]
}

// Count returns the number of indexed identities.
func (ix *EncodingIndex) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.identities)
}

// IsEmpty returns true if no graph has been built.
func (ix *EncodingIndex) IsEmpty() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.graph == nil
}
