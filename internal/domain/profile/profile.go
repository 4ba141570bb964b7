// Package profile holds the user profile aggregate and its text projection.
package profile

import (
	"fmt"
	"strings"
)

// Profile is the matching-relevant slice of a user session (immutable value object).
// Name and email deliberately never reach this type: the vector store must not
// hold personal identifiers.
type Profile struct {
	id        string
	major     string
	location  string
	goals     []string
	favorites []string
	createdAt string
}

// New validates and creates a Profile. ID is required; everything else may be empty.
func New(id, major, location string, goals, favorites []string, createdAt string) (Profile, error) {
	if id == "" {
		return Profile{}, fmt.Errorf("profile ID is required")
	}
	return Profile{
		id:        id,
		major:     major,
		location:  location,
		goals:     cloneStrings(goals),
		favorites: cloneStrings(favorites),
		createdAt: createdAt,
	}, nil
}

// Reconstruct creates a Profile without validation (storage hydration).
func Reconstruct(id, major, location string, goals, favorites []string, createdAt string) Profile {
	return Profile{id: id, major: major, location: location, goals: goals, favorites: favorites, createdAt: createdAt}
}

// ID returns the profile identifier.
func (p *Profile) ID() string { return p.id }

// Major returns the major/degree field.
func (p *Profile) Major() string { return p.major }

// Location returns the location field.
func (p *Profile) Location() string { return p.location }

// Goals returns the career goals.
func (p *Profile) Goals() []string { return p.goals }

// Favorites returns the favorite activities.
func (p *Profile) Favorites() []string { return p.favorites }

// CreatedAt returns the session creation timestamp (RFC 3339 string, may be empty).
func (p *Profile) CreatedAt() string { return p.createdAt }

// Render projects the profile into the natural-language string used as
// embedding input. Fields appear in fixed order, whitespace-stripped, empty
// fields omitted; an all-empty profile renders to "". The projection is pure:
// the same profile always yields the same text, which downstream embedding
// caches rely on.
func (p *Profile) Render() string {
	var parts []string

	if major := strings.TrimSpace(p.major); major != "" {
		parts = append(parts, "Major: "+major)
	}
	if location := strings.TrimSpace(p.location); location != "" {
		parts = append(parts, "Location: "+location)
	}
	if favorites := joinClean(p.favorites); favorites != "" {
		parts = append(parts, "Interests: "+favorites)
	}
	if goals := joinClean(p.goals); goals != "" {
		parts = append(parts, "Career goals: "+goals)
	}

	return strings.Join(parts, ". ")
}

// joinClean strips every item and drops the ones that end up empty.
func joinClean(items []string) string {
	clean := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			clean = append(clean, s)
		}
	}
	return strings.Join(clean, ", ")
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}
