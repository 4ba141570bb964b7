// Package matcher finds the most similar stored profiles for a user.
package matcher

import (
	"context"
	"fmt"

	"github.com/vincent3477/GraduateSupportApp/internal/domain/match"
)

// Service handles top-K similar-profile queries.
type Service struct {
	repo        Repository
	defaultTopK int
	maxTopK     int
}

// New creates a matcher service.
func New(repo Repository, defaultTopK, maxTopK int) *Service {
	return &Service{repo: repo, defaultTopK: defaultTopK, maxTopK: maxTopK}
}

// FindSimilar returns up to topK profiles most similar to the given user,
// ordered by descending similarity. The user's own record never appears in
// the result. topK <= 0 uses the configured default.
func (s *Service) FindSimilar(ctx context.Context, userID string, topK int) ([]match.Match, error) {
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}

	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}

	// Ask for one extra so the self-hit can be dropped without shrinking the page.
	neighbors, err := s.repo.QueryNearest(ctx, rec.Vector, topK+1)
	if err != nil {
		return nil, fmt.Errorf("query nearest: %w", err)
	}

	matches := make([]match.Match, 0, topK)
	for _, n := range neighbors {
		if n.ID == userID {
			continue
		}
		matches = append(matches, match.New(n.ID, similarityFromDistance(n.Distance), n.Meta))
		if len(matches) == topK {
			break
		}
	}
	return matches, nil
}

// similarityFromDistance maps the store's distance to a [0, 1] score where 1
// is an exact match. Distances of 2 or more clamp to 0.
func similarityFromDistance(d float64) float64 {
	sim := 1 - d/2
	if sim < 0 {
		return 0
	}
	return sim
}
