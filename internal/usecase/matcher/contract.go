package matcher

import (
	"context"

	"github.com/vincent3477/GraduateSupportApp/internal/domain/match"
	domprofile "github.com/vincent3477/GraduateSupportApp/internal/domain/profile"
)

// Repository defines the vector-store contract for similarity matching.
type Repository interface {
	Get(ctx context.Context, id string) (domprofile.Record, error)
	QueryNearest(ctx context.Context, vector []float32, k int) ([]match.Neighbor, error)
}
