package auth

import (
	"context"

	domaccount "github.com/vincent3477/GraduateSupportApp/internal/domain/account"
)

// AccountRepo stores registered credentials.
type AccountRepo interface {
	Create(ctx context.Context, a domaccount.Account) error
	GetByEmail(ctx context.Context, email string) (domaccount.Account, error)
	GetByID(ctx context.Context, id string) (domaccount.Account, error)
}
