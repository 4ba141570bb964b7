package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vincent3477/GraduateSupportApp/internal/domain"
	"github.com/vincent3477/GraduateSupportApp/internal/domain/match"
	authuc "github.com/vincent3477/GraduateSupportApp/internal/usecase/auth"
	matcheruc "github.com/vincent3477/GraduateSupportApp/internal/usecase/matcher"
	onboardinguc "github.com/vincent3477/GraduateSupportApp/internal/usecase/onboarding"
	recommenduc "github.com/vincent3477/GraduateSupportApp/internal/usecase/recommend"
	"github.com/vincent3477/GraduateSupportApp/internal/version"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest     = "bad_request"
	codeValidation     = "validation_failed"
	codeNotFound       = "not_found"
	codeConflict       = "already_exists"
	codeUnauthorized   = "unauthorized"
	codeEmbeddingError = "embedding_provider_error"
	codeAgentError     = "agent_unavailable"
	codeInternalError  = "internal_error"
)

const maxSimilarGoals = 3

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// HealthChecker reports readiness of one dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server exposes the onboarding, matching, auth and recommendation services
// over the JSON API the frontend consumes.
type Server struct {
	onboarding      *onboardinguc.Service
	matcher         *matcheruc.Service
	auth            *authuc.Service
	recommend       *recommenduc.Service
	checks          map[string]HealthChecker
	embedModel      string
	embedDimensions int
	logger          *zap.Logger
	errorHandlers   []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	onboarding *onboardinguc.Service,
	matcher *matcheruc.Service,
	auth *authuc.Service,
	recommend *recommenduc.Service,
	checks map[string]HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		onboarding: onboarding,
		matcher:    matcher,
		auth:       auth,
		recommend:  recommend,
		checks:     checks,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		profileNotFoundHandler,
		sentinelHandler(domain.ErrInvalidProfile, http.StatusBadRequest, codeValidation),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAccountExists, http.StatusConflict, codeConflict),
		sentinelHandler(domain.ErrInvalidCredentials, http.StatusUnauthorized, codeUnauthorized),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeValidation),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingError),
		sentinelHandler(domain.ErrAgentUnavailable, http.StatusBadGateway, codeAgentError),
	}
	return s
}

// WithEmbeddingInfo attaches provider details reported by /api/stats.
func (s *Server) WithEmbeddingInfo(model string, dimensions int) *Server {
	s.embedModel = model
	s.embedDimensions = dimensions
	return s
}

// Register mounts every route on the given router.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.ServiceInfo)
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)

	r.Post("/api/users", s.CreateUser)
	r.Post("/api/users/{id}/preferences", s.SavePreferences)
	r.Get("/api/users/{id}/similar", s.FindSimilar)
	r.Get("/api/stats", s.Stats)
	r.Post("/api/reindex", s.Reindex)

	r.Get("/api/recommendations", s.Recommendations)
	r.Post("/api/update-card", s.UpdateCard)

	r.Post("/api/register", s.RegisterAccount)
	r.Post("/api/login", s.Login)
	r.Post("/api/logout", s.Logout)
	r.Get("/api/verify-token", s.VerifyToken)
}

// ServiceInfo handles GET /.
func (s *Server) ServiceInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "graduate-support-api",
		"version": version.Version,
		"status":  "running",
	})
}

// Health handles GET /health. Any failing dependency degrades the report.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, c := range s.checks {
		if err := c.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "unhealthy"
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks[name] = "healthy"
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// CreateUser handles POST /api/users.
func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sess, err := s.onboarding.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"user_id":    sess.ID,
		"name":       sess.Name,
		"email":      sess.Email,
		"created_at": sess.CreatedAt,
	})
}

// SavePreferences handles POST /api/users/{id}/preferences.
func (s *Server) SavePreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req struct {
		Major     string   `json:"major"`
		Location  string   `json:"location"`
		Goals     []string `json:"goals"`
		Favorites []string `json:"favorites"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sess, err := s.onboarding.SavePreferences(r.Context(), userID, onboardinguc.Preferences{
		Major:     req.Major,
		Location:  req.Location,
		Goals:     req.Goals,
		Favorites: req.Favorites,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":   sess.ID,
		"major":     sess.Major,
		"location":  sess.Location,
		"goals":     sess.Goals,
		"favorites": sess.Favorites,
	})
}

type similarUser struct {
	UserID   string   `json:"user_id"`
	Name     string   `json:"name"`
	Major    string   `json:"major"`
	Location string   `json:"location"`
	Goals    []string `json:"goals"`
}

// FindSimilar handles GET /api/users/{id}/similar.
func (s *Server) FindSimilar(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	topK := 0
	if v := r.URL.Query().Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeValidation, "top_k must be a positive integer")
			return
		}
		topK = n
	}

	matches, err := s.matcher.FindSimilar(r.Context(), userID, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	users := make([]similarUser, len(matches))
	for i := range matches {
		users[i] = s.similarUserFromMatch(r.Context(), &matches[i])
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":       userID,
		"total_matches": len(users),
		"similar_users": users,
	})
}

// similarUserFromMatch joins stored metadata with the display name from the
// session repository. The vector store never holds names, so a missing session
// falls back to a placeholder instead of failing the whole response.
func (s *Server) similarUserFromMatch(ctx context.Context, m *match.Match) similarUser {
	name := "Unknown"
	if sess, err := s.onboarding.GetUser(ctx, m.ID()); err == nil {
		name = sess.Name
	}

	goals := m.Meta().Goals
	if len(goals) > maxSimilarGoals {
		goals = goals[:maxSimilarGoals]
	}
	if goals == nil {
		goals = []string{}
	}

	return similarUser{
		UserID:   m.ID(),
		Name:     name,
		Major:    m.Meta().Major,
		Location: m.Meta().Location,
		Goals:    goals,
	}
}

// Stats handles GET /api/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.onboarding.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := map[string]any{
		"active_sessions":  stats.ActiveSessions,
		"indexed_profiles": stats.IndexedProfiles,
	}
	if s.embedModel != "" {
		resp["embedding_model"] = s.embedModel
		resp["embedding_dimensions"] = s.embedDimensions
	}

	writeJSON(w, http.StatusOK, resp)
}

// Reindex handles POST /api/reindex. Re-embeds every active session's profile
// and rewrites the vector store.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	n, err := s.onboarding.ReindexAll(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"reindexed": n,
	})
}

// Recommendations handles GET /api/recommendations.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cards, err := s.recommend.Recommend(r.Context(), recommenduc.Query{
		Name:      q.Get("name"),
		Major:     q.Get("major"),
		Location:  q.Get("location"),
		Favorites: splitParam(q.Get("favorites")),
		Goals:     splitParam(q.Get("goals")),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"recommendations": cards,
	})
}

// UpdateCard handles POST /api/update-card.
func (s *Server) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardName  string `json:"card_name"`
		Completed bool   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	name := strings.TrimSpace(req.CardName)
	if name == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "card_name is required")
		return
	}

	if err := s.recommend.UpdateCard(r.Context(), name, req.Completed); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"card_name": name,
		"completed": req.Completed,
	})
}

// RegisterAccount handles POST /api/register.
func (s *Server) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	acc, err := s.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"user_id": acc.ID,
		"name":    acc.Name,
		"email":   acc.Email,
	})
}

// Login handles POST /api/login.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	token, acc, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]string{
			"user_id": acc.ID,
			"name":    acc.Name,
			"email":   acc.Email,
		},
	})
}

// Logout handles POST /api/logout. Tokens are stateless, so logout is a
// client-side discard; the endpoint exists so the frontend has one to call.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "logged out",
	})
}

// VerifyToken handles GET /api/verify-token.
func (s *Server) VerifyToken(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
		return
	}

	claims, err := s.auth.Verify(r.Context(), token)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":   true,
		"user_id": claims.UserID,
		"email":   claims.Email,
	})
}

func splitParam(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidProfile,
		domain.ErrProfileNotFound,
		domain.ErrSessionNotFound,
		domain.ErrAccountExists,
		domain.ErrInvalidCredentials,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrAgentUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// profileNotFoundHandler tells the caller what to do next instead of a bare 404.
func profileNotFoundHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return false
	}
	writeError(w, http.StatusNotFound, codeNotFound, "profile not found: add preferences first")
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
