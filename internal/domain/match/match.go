// Package match holds the similarity search hit value object.
package match

// Metadata is the stored profile metadata materialized with a match.
type Metadata struct {
	Major     string
	Location  string
	Goals     []string
	Favorites []string
	CreatedAt string
}

// Neighbor is a raw nearest-neighbor hit straight from the store. Distance is
// the index metric value, not a similarity score; converting is the matcher's job.
type Neighbor struct {
	ID       string
	Distance float64
	Meta     Metadata
}

// Match is a single similar-user hit.
type Match struct {
	id         string
	similarity float64
	meta       Metadata
}

// New creates a match.
func New(id string, similarity float64, meta Metadata) Match {
	return Match{id: id, similarity: similarity, meta: meta}
}

// ID returns the matched user's identifier.
func (m *Match) ID() string { return m.id }

// Similarity returns the similarity score in [0, 1], higher is more similar.
func (m *Match) Similarity() float64 { return m.similarity }

// Meta returns the matched user's stored metadata.
func (m *Match) Meta() Metadata { return m.meta }
