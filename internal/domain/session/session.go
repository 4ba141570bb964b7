// Package session holds the onboarding session state.
package session

import (
	domprofile "github.com/vincent3477/GraduateSupportApp/internal/domain/profile"
)

// Session is the mutable onboarding state for a user. Unlike the stored
// profile it carries personal identifiers, so it never leaves process memory.
type Session struct {
	ID        string
	Name      string
	Email     string
	Major     string
	Location  string
	Goals     []string
	Favorites []string
	CreatedAt string
}

// Profile projects the matching-relevant slice of the session.
// Name and email are dropped here on purpose.
func (s *Session) Profile() (domprofile.Profile, error) {
	return domprofile.New(s.ID, s.Major, s.Location, s.Goals, s.Favorites, s.CreatedAt)
}
