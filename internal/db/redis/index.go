package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/vincent3477/GraduateSupportApp/internal/db"
)

// EnsureIndex creates the FT index if it does not exist yet.
func (s *Store) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

func buildCreateArgs(def *db.IndexDefinition) ([]string, error) {
	if def.Name == "" {
		return nil, errors.New("index name is required")
	}
	if def.Prefix == "" {
		return nil, errors.New("index prefix is required")
	}
	if def.VectorDim <= 0 {
		return nil, errors.New("vector DIM must be positive")
	}

	metric := def.Metric
	if metric == "" {
		metric = db.DistanceL2
	}

	args := []string{def.Name, "ON", "HASH", "PREFIX", "1", def.Prefix, "SCHEMA"}

	for _, f := range def.TagFields {
		args = append(args, f, "TAG")
	}

	args = append(args,
		"__vector", "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(def.VectorDim),
		"DISTANCE_METRIC", string(metric),
	)

	return args, nil
}
