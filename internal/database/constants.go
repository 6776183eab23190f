package database

// EncodingDim is the fixed dimension for face embeddings produced by the
// face engine (512 for buffalo_l/ResNet100).
const EncodingDim = 512

// HNSW graph parameters for the in-memory voter encoding index.
const (
	HNSWMaxNeighbors = 16
	HNSWEfSearch     = 64
)
