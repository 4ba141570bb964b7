// Package auth handles registration, login and token verification.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vincent3477/GraduateSupportApp/internal/domain"
	domaccount "github.com/vincent3477/GraduateSupportApp/internal/domain/account"
)

// Claims are the JWT claims issued on login.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 tokens backed by the account repository.
type Service struct {
	accounts  AccountRepo
	secretKey []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an auth service.
func New(accounts AccountRepo, secretKey string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		accounts:  accounts,
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string) (domaccount.Account, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return domaccount.Account{}, fmt.Errorf("name, email and password are required: %w", domain.ErrInvalidProfile)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domaccount.Account{}, fmt.Errorf("hash password: %w", err)
	}

	acc := domaccount.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}

	if err := s.accounts.Create(ctx, acc); err != nil {
		return domaccount.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("Account registered", zap.String("user_id", acc.ID))
	return acc, nil
}

// Login verifies credentials and returns a signed token with the account.
// Wrong email and wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (string, domaccount.Account, error) {
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return "", domaccount.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", domaccount.Account{}, fmt.Errorf("verify password: %w", domain.ErrInvalidCredentials)
	}

	token, err := s.issueToken(acc)
	if err != nil {
		return "", domaccount.Account{}, fmt.Errorf("issue token: %w", err)
	}
	return token, acc, nil
}

// Verify parses and validates a token, returning its claims.
func (s *Service) Verify(_ context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w: %w", domain.ErrInvalidCredentials, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (s *Service) issueToken(acc domaccount.Account) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: acc.ID,
		Email:  acc.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}
