package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/vincent3477/GraduateSupportApp/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func vecBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func testIndex(t *testing.T, s *Store, dim int) {
	t.Helper()
	err := s.EnsureIndex(context.Background(), &db.IndexDefinition{
		Name:      "profiles:idx",
		Prefix:    "profiles:",
		VectorDim: dim,
		Metric:    db.DistanceL2,
	})
	if err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
}

func TestHSet_HGetAll_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fields := map[string]string{"major": "CS", "__document": "Major: CS"}
	if err := s.HSet(ctx, "profiles:u1", fields); err != nil {
		t.Fatalf("HSet: %v", err)
	}

	got, err := s.HGetAll(ctx, "profiles:u1")
	if err != nil {
		t.Fatalf("HGetAll: %v", err)
	}
	if got["major"] != "CS" || got["__document"] != "Major: CS" {
		t.Errorf("unexpected fields: %v", got)
	}
}

func TestHGetAll_Missing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.HGetAll(context.Background(), "profiles:nope")
	if err != nil {
		t.Fatalf("HGetAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestHSet_MergesFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.HSet(ctx, "profiles:u1", map[string]string{"major": "CS"})
	_ = s.HSet(ctx, "profiles:u1", map[string]string{"location": "SF"})

	got, _ := s.HGetAll(ctx, "profiles:u1")
	if got["major"] != "CS" || got["location"] != "SF" {
		t.Errorf("expected merged fields, got %v", got)
	}
}

func TestDel_Exists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.HSet(ctx, "profiles:u1", map[string]string{"major": "CS"})

	exists, err := s.Exists(ctx, "profiles:u1")
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v; want true", exists, err)
	}

	existed, err := s.Del(ctx, "profiles:u1")
	if err != nil {
		t.Fatalf("Del: %v", err)
	}
	if !existed {
		t.Error("expected Del to report the record existed")
	}

	exists, _ = s.Exists(ctx, "profiles:u1")
	if exists {
		t.Error("expected record to be gone")
	}

	existed, err = s.Del(ctx, "profiles:u1")
	if err != nil {
		t.Fatalf("Del of missing key: %v", err)
	}
	if existed {
		t.Error("second delete of the same key must report false")
	}
}

func TestScan_PrefixGlob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.HSet(ctx, "profiles:u1", map[string]string{"a": "1"})
	_ = s.HSet(ctx, "profiles:u2", map[string]string{"a": "2"})
	_ = s.HSet(ctx, "other:x", map[string]string{"a": "3"})

	keys, err := s.Scan(ctx, "profiles:*")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 keys, got %v", keys)
	}
}

func TestKV_GetSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "v" {
		t.Errorf("Get = %q, want %q", data, "v")
	}
}

func TestSearchKNN_OrdersByDistance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	testIndex(t, s, 2)

	_ = s.HSet(ctx, "profiles:near", map[string]string{"__vector": vecBlob([]float32{1, 0}), "major": "CS"})
	_ = s.HSet(ctx, "profiles:far", map[string]string{"__vector": vecBlob([]float32{0, 1}), "major": "Art"})
	_ = s.HSet(ctx, "profiles:exact", map[string]string{"__vector": vecBlob([]float32{0.9, 0.1}), "major": "CS"})

	res, err := s.SearchKNN(ctx, &db.KNNQuery{
		IndexName: "profiles:idx",
		Vector:    []float32{1, 0},
		K:         3,
	})
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(res.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(res.Entries))
	}
	if res.Entries[0].Key != "profiles:near" {
		t.Errorf("closest = %s, want profiles:near", res.Entries[0].Key)
	}
	if res.Entries[0].Distance != 0 {
		t.Errorf("self distance = %v, want 0", res.Entries[0].Distance)
	}
	if res.Entries[2].Key != "profiles:far" {
		t.Errorf("farthest = %s, want profiles:far", res.Entries[2].Key)
	}
	for i := 1; i < len(res.Entries); i++ {
		if res.Entries[i].Distance < res.Entries[i-1].Distance {
			t.Error("entries not in ascending distance order")
		}
	}
}

func TestSearchKNN_KLargerThanStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	testIndex(t, s, 2)

	_ = s.HSet(ctx, "profiles:only", map[string]string{"__vector": vecBlob([]float32{1, 0})})

	res, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "profiles:idx", Vector: []float32{1, 0}, K: 10})
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(res.Entries))
	}
}

func TestSearchKNN_ReturnFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	testIndex(t, s, 2)

	_ = s.HSet(ctx, "profiles:u1", map[string]string{
		"__vector": vecBlob([]float32{1, 0}),
		"major":    "CS",
		"location": "SF",
	})

	res, err := s.SearchKNN(ctx, &db.KNNQuery{
		IndexName: "profiles:idx", Vector: []float32{1, 0}, K: 1,
		ReturnFields: []string{"major"},
	})
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	fields := res.Entries[0].Fields
	if fields["major"] != "CS" {
		t.Errorf("expected major field, got %v", fields)
	}
	if _, ok := fields["location"]; ok {
		t.Error("location should not be returned")
	}
}

func TestSearchKNN_DimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	testIndex(t, s, 2)

	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "profiles:idx", Vector: []float32{1, 0, 0}, K: 1,
	})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestSearchKNN_UnknownIndex(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "nope", Vector: []float32{1}, K: 1,
	})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearchCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	testIndex(t, s, 2)

	_ = s.HSet(ctx, "profiles:u1", map[string]string{"__vector": vecBlob([]float32{1, 0})})
	_ = s.HSet(ctx, "profiles:u2", map[string]string{"__vector": vecBlob([]float32{0, 1})})

	n, err := s.SearchCount(ctx, "profiles:idx")
	if err != nil {
		t.Fatalf("SearchCount: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestVectors_SurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	ctx := context.Background()

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_ = s.HSet(ctx, "profiles:u1", map[string]string{"__vector": vecBlob([]float32{1, 0}), "major": "CS"})
	s.Close()

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	testIndex(t, reopened, 2)

	res, err := reopened.SearchKNN(ctx, &db.KNNQuery{IndexName: "profiles:idx", Vector: []float32{1, 0}, K: 1})
	if err != nil {
		t.Fatalf("SearchKNN after reopen: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Key != "profiles:u1" {
		t.Errorf("unexpected result after reopen: %+v", res)
	}
}
