// Package db defines the storage facade shared by the redis and bolt drivers.
package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces they actually use (ISP).
type Store interface {
	Pinger
	HashStore
	KVStore
	VectorIndex
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based record operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore provides simple key-value operations (embedding cache).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// VectorIndex provides vector index lifecycle and nearest-neighbor search.
type VectorIndex interface {
	EnsureIndex(ctx context.Context, def *IndexDefinition) error
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index string) (int, error)
}

// DistanceMetric used by vector similarity queries.
type DistanceMetric string

const (
	// DistanceL2 is Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceCosine is cosine distance.
	DistanceCosine DistanceMetric = "COSINE"
)

// IndexDefinition describes the vector index over hash records.
type IndexDefinition struct {
	Name      string
	Prefix    string
	VectorDim int
	Metric    DistanceMetric
	// TagFields are plain metadata fields indexed as TAG (redis driver only).
	TagFields []string
}

// KNNQuery is a nearest-neighbor request against an index.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchEntry is a single hit with its raw distance and returned fields.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}

// SearchResult holds KNN hits ordered by ascending distance.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}
