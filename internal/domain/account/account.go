// Package account holds the registered credential record.
package account

// Account is a registered credential record. PasswordHash is a bcrypt hash,
// never the raw password.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    string
}
