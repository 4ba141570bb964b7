// Package onboarding manages user creation, preference capture and reindexing.
package onboarding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vincent3477/GraduateSupportApp/internal/domain"
	domprofile "github.com/vincent3477/GraduateSupportApp/internal/domain/profile"
	domsession "github.com/vincent3477/GraduateSupportApp/internal/domain/session"
)

// Preferences carries the matching-relevant fields a user submits.
type Preferences struct {
	Major     string
	Location  string
	Goals     []string
	Favorites []string
}

// Stats summarizes what the system currently holds.
type Stats struct {
	ActiveSessions  int
	IndexedProfiles int
}

// Service handles the onboarding flow: create a session, capture preferences,
// embed the rendered profile and write it to the vector store.
type Service struct {
	sessions   SessionRepo
	profiles   ProfileRepo
	embedder   Embedder
	batchEmbed BatchEmbedder
	logger     *zap.Logger
	now        func() time.Time
}

// New creates an onboarding service. batchEmbed may be nil; reindexing then
// falls back to per-profile embedding.
func New(
	sessions SessionRepo,
	profiles ProfileRepo,
	embedder Embedder,
	batchEmbed BatchEmbedder,
	logger *zap.Logger,
) *Service {
	return &Service{
		sessions:   sessions,
		profiles:   profiles,
		embedder:   embedder,
		batchEmbed: batchEmbed,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateUser starts a session for a new user and returns its ID.
func (s *Service) CreateUser(ctx context.Context, name, email string) (domsession.Session, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return domsession.Session{}, fmt.Errorf("name and email are required: %w", domain.ErrInvalidProfile)
	}

	sess := domsession.Session{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return domsession.Session{}, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("User session created", zap.String("user_id", sess.ID))
	return sess, nil
}

// GetUser returns the stored session for a user.
func (s *Service) GetUser(ctx context.Context, userID string) (domsession.Session, error) {
	return s.sessions.Get(ctx, userID)
}

// SavePreferences updates the user's session, renders the profile text,
// embeds it and upserts the vector-store record. Saving again fully replaces
// the previous record.
func (s *Service) SavePreferences(ctx context.Context, userID string, prefs Preferences) (domsession.Session, error) {
	sess, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return domsession.Session{}, fmt.Errorf("get session %s: %w", userID, err)
	}

	sess.Major = strings.TrimSpace(prefs.Major)
	sess.Location = strings.TrimSpace(prefs.Location)
	sess.Goals = prefs.Goals
	sess.Favorites = prefs.Favorites

	profile, err := sess.Profile()
	if err != nil {
		return domsession.Session{}, fmt.Errorf("project profile: %w: %w", domain.ErrInvalidProfile, err)
	}

	document := profile.Render()

	embRes, err := s.embedder.Embed(ctx, document)
	if err != nil {
		return domsession.Session{}, fmt.Errorf("embed profile: %w", err)
	}

	if err := s.profiles.Upsert(ctx, &profile, document, embRes.Embedding); err != nil {
		return domsession.Session{}, fmt.Errorf("upsert profile: %w", err)
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return domsession.Session{}, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("Preferences saved",
		zap.String("user_id", userID),
		zap.Int("tokens", embRes.TotalTokens))
	return sess, nil
}

// ReindexAll re-renders and re-embeds every active session's profile and
// rewrites the vector store in one batch. Returns how many profiles were indexed.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	sessions, err := s.sessions.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	profiles := make([]domprofile.Profile, 0, len(sessions))
	documents := make([]string, 0, len(sessions))
	for i := range sessions {
		p, err := sessions[i].Profile()
		if err != nil {
			s.logger.Warn("Skipping session with invalid profile",
				zap.String("user_id", sessions[i].ID), zap.Error(err))
			continue
		}
		doc := p.Render()
		if doc == "" {
			// Sessions that never saved preferences have nothing to index.
			s.logger.Debug("Skipping session without preferences",
				zap.String("user_id", sessions[i].ID))
			continue
		}
		profiles = append(profiles, p)
		documents = append(documents, doc)
	}

	var records []domprofile.Record
	totalTokens := 0
	if len(profiles) > 0 {
		batch, err := s.embedDocuments(ctx, documents)
		if err != nil {
			return 0, fmt.Errorf("embed profiles: %w", err)
		}
		if len(batch.Embeddings) != len(profiles) {
			return 0, fmt.Errorf("embedding count mismatch: %d profiles, %d vectors",
				len(profiles), len(batch.Embeddings))
		}
		totalTokens = batch.TotalTokens

		records = make([]domprofile.Record, len(profiles))
		for i := range profiles {
			records[i] = domprofile.Record{
				Profile:  profiles[i],
				Document: documents[i],
				Vector:   batch.Embeddings[i],
			}
		}
		if err := s.profiles.UpsertMulti(ctx, records); err != nil {
			return 0, fmt.Errorf("upsert profiles: %w", err)
		}
	}

	// Remove whatever the rewrite did not cover: records whose session is
	// gone, or whose session no longer carries preferences. Upserting first
	// keeps the index populated for readers racing the reindex.
	keep := make(map[string]struct{}, len(records))
	for i := range records {
		keep[records[i].Profile.ID()] = struct{}{}
	}
	existing, err := s.profiles.IDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list profile ids: %w", err)
	}
	removed := 0
	for _, id := range existing {
		if _, ok := keep[id]; ok {
			continue
		}
		if _, err := s.profiles.Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("delete stale profile %s: %w", id, err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("Removed stale profiles", zap.Int("removed", removed))
	}

	s.logger.Info("Reindex complete",
		zap.Int("profiles", len(records)),
		zap.Int("tokens", totalTokens))
	return len(records), nil
}

// Stats returns session and index counts.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	active, err := s.sessions.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count sessions: %w", err)
	}
	indexed, err := s.profiles.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count profiles: %w", err)
	}
	return Stats{ActiveSessions: active, IndexedProfiles: indexed}, nil
}

func (s *Service) embedDocuments(ctx context.Context, documents []string) (domain.BatchEmbeddingResult, error) {
	if s.batchEmbed != nil {
		return s.batchEmbed.BatchEmbed(ctx, documents)
	}
	return domain.BatchFallback(ctx, s.embedder, documents)
}
