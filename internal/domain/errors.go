package domain

import "errors"

var (
	// ErrInvalidProfile signals a profile that cannot be stored (e.g. missing id).
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrProfileNotFound signals a user with no stored embedding.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrSessionNotFound signals an unknown onboarding session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAccountExists signals a duplicate registration.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials signals a failed login or an invalid token.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrAgentUnavailable signals that the recommendation agent failed to answer.
	ErrAgentUnavailable = errors.New("recommendation agent unavailable")
)
