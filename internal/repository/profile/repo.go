// Package profile is the vector-store repository for user profiles.
package profile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vincent3477/GraduateSupportApp/internal/db"
	"github.com/vincent3477/GraduateSupportApp/internal/domain"
	"github.com/vincent3477/GraduateSupportApp/internal/domain/match"
	domprofile "github.com/vincent3477/GraduateSupportApp/internal/domain/profile"
)

// store is the consumer interface for profile persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string) (int, error)
}

// Repo implements the profile vector-store repository.
type Repo struct {
	store  store
	logger *zap.Logger
}

// New creates a profile repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, logger: logger}
}

// Upsert writes a profile with its rendered document and vector.
// An existing record for the same ID is fully replaced.
func (r *Repo) Upsert(ctx context.Context, p *domprofile.Profile, document string, vector []float32) error {
	if p.ID() == "" {
		return fmt.Errorf("profile ID is required: %w", domain.ErrInvalidProfile)
	}

	fields, err := buildFields(p, document, vector)
	if err != nil {
		return fmt.Errorf("marshal profile fields: %w", err)
	}

	key := profileKey(p.ID())

	// Delete first so stale fields from a previous write cannot survive.
	if _, err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// UpsertMulti writes a batch of profiles in one pipelined call (reindexing path).
func (r *Repo) UpsertMulti(ctx context.Context, items []domprofile.Record) error {
	if len(items) == 0 {
		return nil
	}

	hashItems := make([]db.HashSetItem, 0, len(items))
	for i := range items {
		it := &items[i]
		if it.Profile.ID() == "" {
			return fmt.Errorf("profile ID is required at batch index %d: %w", i, domain.ErrInvalidProfile)
		}
		fields, err := buildFields(&it.Profile, it.Document, it.Vector)
		if err != nil {
			return fmt.Errorf("marshal profile fields for %s: %w", it.Profile.ID(), err)
		}
		hashItems = append(hashItems, db.HashSetItem{Key: profileKey(it.Profile.ID()), Fields: fields})
	}

	if err := r.store.HSetMulti(ctx, hashItems); err != nil {
		return fmt.Errorf("hset multi: %w", err)
	}
	return nil
}

// Get returns a stored profile record by ID.
func (r *Repo) Get(ctx context.Context, id string) (domprofile.Record, error) {
	key := profileKey(id)

	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domprofile.Record{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return domprofile.Record{}, domain.ErrProfileNotFound
	}

	return parseRecord(id, fields, r.logger), nil
}

// QueryNearest returns up to k stored profiles ordered by ascending distance
// from the query vector. The caller's own record is not excluded here.
func (r *Repo) QueryNearest(ctx context.Context, vector []float32, k int) ([]match.Neighbor, error) {
	q := &db.KNNQuery{
		IndexName: IndexName(),
		Vector:    vector,
		K:         k,
		ReturnFields: []string{
			fieldMajor, fieldLocation, fieldGoals, fieldFavorites, fieldCreatedAt,
		},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	neighbors := make([]match.Neighbor, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, keyPrefix())
		rec := parseRecord(id, entry.Fields, r.logger)
		neighbors = append(neighbors, match.Neighbor{
			ID:       id,
			Distance: entry.Distance,
			Meta: match.Metadata{
				Major:     rec.Profile.Major(),
				Location:  rec.Profile.Location(),
				Goals:     rec.Profile.Goals(),
				Favorites: rec.Profile.Favorites(),
				CreatedAt: rec.Profile.CreatedAt(),
			},
		})
	}
	return neighbors, nil
}

// Delete removes a profile. Returns true if a record existed, straight from
// the store's delete so two racing deleters cannot both report it.
func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	key := profileKey(id)
	existed, err := r.store.Del(ctx, key)
	if err != nil {
		return false, fmt.Errorf("del %s: %w", key, err)
	}
	return existed, nil
}

// Count returns the number of stored profiles.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, IndexName())
	if err != nil {
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}

// IDs returns every stored profile ID (reindexing path).
func (r *Repo) IDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, keyPrefix()+"*")
	if err != nil {
		return nil, fmt.Errorf("scan profiles: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, keyPrefix()))
	}
	return ids, nil
}

// IndexDefinition describes the profile vector index for a given dimension.
func IndexDefinition(dim int) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:      IndexName(),
		Prefix:    keyPrefix(),
		VectorDim: dim,
		Metric:    db.DistanceL2,
		TagFields: []string{fieldMajor, fieldLocation},
	}
}

// IndexName returns the profile vector index name.
func IndexName() string {
	return domain.KeyPrefix + "profiles:idx"
}

func profileKey(id string) string {
	return keyPrefix() + id
}

func keyPrefix() string {
	return domain.KeyPrefix + "profiles:"
}
