// Package account is an in-memory repository for registered accounts.
package account

import (
	"context"
	"strings"
	"sync"

	"github.com/vincent3477/GraduateSupportApp/internal/domain"
	domaccount "github.com/vincent3477/GraduateSupportApp/internal/domain/account"
)

// Repo keeps accounts in process memory, keyed by lowercased email.
type Repo struct {
	mu       sync.RWMutex
	byEmail  map[string]domaccount.Account
	byUserID map[string]domaccount.Account
}

// New creates an empty account repository.
func New() *Repo {
	return &Repo{
		byEmail:  make(map[string]domaccount.Account),
		byUserID: make(map[string]domaccount.Account),
	}
}

// Create registers an account. Returns ErrAccountExists for a duplicate email.
func (r *Repo) Create(_ context.Context, a domaccount.Account) error {
	email := normalizeEmail(a.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return domain.ErrAccountExists
	}
	r.byEmail[email] = a
	r.byUserID[a.ID] = a
	return nil
}

// GetByEmail returns an account by email (case-insensitive).
func (r *Repo) GetByEmail(_ context.Context, email string) (domaccount.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return domaccount.Account{}, domain.ErrInvalidCredentials
	}
	return a, nil
}

// GetByID returns an account by user ID.
func (r *Repo) GetByID(_ context.Context, id string) (domaccount.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byUserID[id]
	if !ok {
		return domaccount.Account{}, domain.ErrInvalidCredentials
	}
	return a, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
