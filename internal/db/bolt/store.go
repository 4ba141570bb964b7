// Package bolt implements db.Store on an embedded bbolt file.
//
// Records live as JSON field maps in a single bucket; vectors are mirrored in
// memory so KNN search is a brute-force scan without touching disk. Fine for
// the thousands-of-profiles scale this service runs at; swap in the redis
// driver when an HNSW index is needed.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/vincent3477/GraduateSupportApp/internal/db"
)

var (
	bucketRecords = []byte("records")
	bucketKV      = []byte("kv")
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store implements db.Store via bbolt.
type Store struct {
	db *bbolt.DB

	mu      sync.RWMutex
	vectors map[string][]float32 // record key -> decoded __vector
	indexes map[string]db.IndexDefinition
}

// NewStore opens (or creates) the bolt file at path.
func NewStore(path string) (*Store, error) {
	bdb, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRecords, bucketKV} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, err
	}

	s := &Store{
		db:      bdb,
		vectors: make(map[string][]float32),
		indexes: make(map[string]db.IndexDefinition),
	}
	if err := s.loadVectors(); err != nil {
		bdb.Close()
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	return s, nil
}

// loadVectors warms the in-memory vector cache from disk.
func (s *Store) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			var fields map[string]string
			if err := json.Unmarshal(v, &fields); err != nil {
				return nil // skip corrupted entries
			}
			if vec := blobToVector(fields["__vector"]); vec != nil {
				s.vectors[string(k)] = vec
			}
			return nil
		})
	})
}

// Ping is a no-op for the embedded store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close closes the underlying bolt file.
func (s *Store) Close() { _ = s.db.Close() }

// WaitForReady is immediate for the embedded store.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// --- HashStore ---

// HSet merges fields into the record at key, creating it if absent.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hsetLocked(key, fields)
}

// HSetMulti stores multiple records in one transaction.
func (s *Store) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if err := s.hsetLocked(item.Key, item.Fields); err != nil {
			return fmt.Errorf("key %s: %w", item.Key, err)
		}
	}
	return nil
}

func (s *Store) hsetLocked(key string, fields map[string]string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)

		merged := make(map[string]string)
		if prev := b.Get([]byte(key)); prev != nil {
			_ = json.Unmarshal(prev, &merged)
		}
		for k, v := range fields {
			merged[k] = v
		}

		data, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}

	if blob, ok := fields["__vector"]; ok {
		if vec := blobToVector(blob); vec != nil {
			s.vectors[key] = vec
		} else {
			delete(s.vectors, key)
		}
	}
	return nil
}

// HGetAll returns all fields of a record; missing keys yield an empty map.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	fields := map[string]string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get([]byte(key))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &fields)
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return fields, nil
}

// Del removes a record. Returns true if the record existed; the existence
// check shares the write transaction, so only one deleter sees true.
func (s *Store) Del(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existed bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		existed = b.Get([]byte(key)) != nil
		return b.Delete([]byte(key))
	})
	if err != nil {
		return false, &db.Error{Op: db.OpDel, Err: err}
	}
	delete(s.vectors, key)
	return existed, nil
}

// Exists checks record presence.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketRecords).Get([]byte(key)) != nil
		return nil
	})
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return found, nil
}

// Scan matches record keys against a "prefix*" glob.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")

	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRecords).Cursor()
		for k, _ := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	return keys, nil
}

// --- KVStore ---

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketKV).Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	if data == nil {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

// Set stores a value at the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), value)
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// --- VectorIndex ---

// EnsureIndex registers the index definition; the embedded store scans rather
// than indexing, so this only records prefix and dimension for validation.
func (s *Store) EnsureIndex(_ context.Context, def *db.IndexDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("index name is required")
	}
	if def.Prefix == "" {
		return fmt.Errorf("index prefix is required")
	}
	if def.VectorDim <= 0 {
		return fmt.Errorf("vector DIM must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[def.Name] = *def
	return nil
}

// SearchKNN brute-forces L2 distance over all records under the index prefix.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	s.mu.RLock()
	def, ok := s.indexes[q.IndexName]
	if !ok {
		s.mu.RUnlock()
		return nil, db.ErrIndexNotFound
	}
	if len(q.Vector) != def.VectorDim {
		s.mu.RUnlock()
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(q.Vector), def.VectorDim)
	}

	type scored struct {
		key  string
		dist float64
	}
	candidates := make([]scored, 0, len(s.vectors))
	for key, vec := range s.vectors {
		if !strings.HasPrefix(key, def.Prefix) || len(vec) != len(q.Vector) {
			continue
		}
		candidates = append(candidates, scored{key: key, dist: l2Distance(q.Vector, vec)})
	}
	s.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	if len(candidates) > q.K {
		candidates = candidates[:q.K]
	}

	entries := make([]db.SearchEntry, 0, len(candidates))
	for _, c := range candidates {
		fields, err := s.HGetAll(ctx, c.key)
		if err != nil {
			return nil, err
		}
		if len(q.ReturnFields) > 0 {
			kept := make(map[string]string, len(q.ReturnFields))
			for _, f := range q.ReturnFields {
				if v, ok := fields[f]; ok {
					kept[f] = v
				}
			}
			fields = kept
		} else {
			delete(fields, "__vector")
		}
		entries = append(entries, db.SearchEntry{Key: c.key, Distance: c.dist, Fields: fields})
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// SearchCount counts records under the index prefix.
func (s *Store) SearchCount(ctx context.Context, index string) (int, error) {
	s.mu.RLock()
	def, ok := s.indexes[index]
	s.mu.RUnlock()
	if !ok {
		return 0, db.ErrIndexNotFound
	}

	keys, err := s.Scan(ctx, def.Prefix+"*")
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// blobToVector deserializes a binary little-endian float32 string; nil on malformed input.
func blobToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
