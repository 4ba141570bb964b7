package onboarding

import (
	"context"

	"github.com/vincent3477/GraduateSupportApp/internal/domain"
	domprofile "github.com/vincent3477/GraduateSupportApp/internal/domain/profile"
	domsession "github.com/vincent3477/GraduateSupportApp/internal/domain/session"
)

// SessionRepo stores onboarding sessions.
type SessionRepo interface {
	Save(ctx context.Context, s domsession.Session) error
	Get(ctx context.Context, id string) (domsession.Session, error)
	All(ctx context.Context) ([]domsession.Session, error)
	Count(ctx context.Context) (int, error)
}

// ProfileRepo writes profiles to the vector store.
type ProfileRepo interface {
	Upsert(ctx context.Context, p *domprofile.Profile, document string, vector []float32) error
	UpsertMulti(ctx context.Context, items []domprofile.Record) error
	IDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes rendered profile text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in one call (reindexing path).
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
