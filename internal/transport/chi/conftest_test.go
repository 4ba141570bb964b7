package chi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vincent3477/GraduateSupportApp/internal/domain"
	"github.com/vincent3477/GraduateSupportApp/internal/domain/match"
	domprofile "github.com/vincent3477/GraduateSupportApp/internal/domain/profile"
	domsession "github.com/vincent3477/GraduateSupportApp/internal/domain/session"
	accountrepo "github.com/vincent3477/GraduateSupportApp/internal/repository/account"
	sessionrepo "github.com/vincent3477/GraduateSupportApp/internal/repository/session"
	authuc "github.com/vincent3477/GraduateSupportApp/internal/usecase/auth"
	matcheruc "github.com/vincent3477/GraduateSupportApp/internal/usecase/matcher"
	onboardinguc "github.com/vincent3477/GraduateSupportApp/internal/usecase/onboarding"
	recommenduc "github.com/vincent3477/GraduateSupportApp/internal/usecase/recommend"
)

// mockProfileRepo implements onboarding.ProfileRepo and matcher.Repository.
type mockProfileRepo struct {
	upsertFn       func(ctx context.Context, p *domprofile.Profile, document string, vector []float32) error
	upsertMultiFn  func(ctx context.Context, items []domprofile.Record) error
	getFn          func(ctx context.Context, id string) (domprofile.Record, error)
	queryNearestFn func(ctx context.Context, vector []float32, k int) ([]match.Neighbor, error)
	idsFn          func(ctx context.Context) ([]string, error)
	deleteFn       func(ctx context.Context, id string) (bool, error)
	countFn        func(ctx context.Context) (int, error)
}

func (m *mockProfileRepo) Upsert(
	ctx context.Context, p *domprofile.Profile, document string, vector []float32,
) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, p, document, vector)
	}
	return nil
}

func (m *mockProfileRepo) UpsertMulti(ctx context.Context, items []domprofile.Record) error {
	if m.upsertMultiFn != nil {
		return m.upsertMultiFn(ctx, items)
	}
	return nil
}

func (m *mockProfileRepo) Get(ctx context.Context, id string) (domprofile.Record, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domprofile.Record{}, domain.ErrProfileNotFound
}

func (m *mockProfileRepo) QueryNearest(
	ctx context.Context, vector []float32, k int,
) ([]match.Neighbor, error) {
	if m.queryNearestFn != nil {
		return m.queryNearestFn(ctx, vector, k)
	}
	return nil, nil
}

func (m *mockProfileRepo) IDs(ctx context.Context) ([]string, error) {
	if m.idsFn != nil {
		return m.idsFn(ctx)
	}
	return nil, nil
}

func (m *mockProfileRepo) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

func (m *mockProfileRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

// mockEmbedder implements onboarding.Embedder.
type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 3}, nil
}

// mockAgent implements recommend.Agent.
type mockAgent struct {
	askFn func(ctx context.Context, message string) (string, error)
}

func (m *mockAgent) Ask(ctx context.Context, message string) (string, error) {
	if m.askFn != nil {
		return m.askFn(ctx, message)
	}
	return "[]", nil
}

// testEnv bundles the wired server with the fakes behind it.
type testEnv struct {
	server   *httptest.Server
	sessions *sessionrepo.Repo
	profiles *mockProfileRepo
	embedder *mockEmbedder
	agent    *mockAgent
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sessions := sessionrepo.New()
	profiles := &mockProfileRepo{}
	embedder := &mockEmbedder{}
	agent := &mockAgent{}
	logger := zap.NewNop()

	onboarding := onboardinguc.New(sessions, profiles, embedder, nil, logger)
	matcher := matcheruc.New(profiles, 5, 50)
	auth := authuc.New(accountrepo.New(), "test-secret", time.Hour, logger)
	recommend := recommenduc.New(agent, logger)

	srv := NewServer(onboarding, matcher, auth, recommend, nil, logger).
		WithEmbeddingInfo("text-embedding-3-small", 384)

	r := chirouter.NewRouter()
	srv.Register(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &testEnv{
		server:   ts,
		sessions: sessions,
		profiles: profiles,
		embedder: embedder,
		agent:    agent,
	}
}

func (e *testEnv) seedSession(t *testing.T, s domsession.Session) {
	t.Helper()
	if err := e.sessions.Save(context.Background(), s); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

// healthCheckFunc adapts a plain function to HealthChecker.
type healthCheckFunc func(ctx context.Context) error

func (f healthCheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func recordHealth(t *testing.T, checks map[string]HealthChecker) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(nil, nil, nil, nil, checks, zap.NewNop())
	rr := httptest.NewRecorder()
	srv.Health(rr, httptest.NewRequest("GET", "/health", nil))
	return rr
}
