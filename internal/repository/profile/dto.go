package profile

import (
	"encoding/binary"
	"encoding/json"
	"math"

	"go.uber.org/zap"

	domprofile "github.com/vincent3477/GraduateSupportApp/internal/domain/profile"
)

// Hash field layout for a stored profile.
const (
	fieldVector    = "__vector"
	fieldDocument  = "__document"
	fieldMajor     = "major"
	fieldLocation  = "location"
	fieldGoals     = "goals_json"
	fieldFavorites = "favorites_json"
	fieldCreatedAt = "created_at"
)

// buildFields flattens a profile, its rendered document and vector into hash fields.
func buildFields(p *domprofile.Profile, document string, vector []float32) (map[string]string, error) {
	goalsJSON, err := json.Marshal(stringsOrEmpty(p.Goals()))
	if err != nil {
		return nil, err
	}
	favoritesJSON, err := json.Marshal(stringsOrEmpty(p.Favorites()))
	if err != nil {
		return nil, err
	}

	return map[string]string{
		fieldVector:    vectorToBlob(vector),
		fieldDocument:  document,
		fieldMajor:     p.Major(),
		fieldLocation:  p.Location(),
		fieldGoals:     string(goalsJSON),
		fieldFavorites: string(favoritesJSON),
		fieldCreatedAt: p.CreatedAt(),
	}, nil
}

// parseRecord hydrates a stored hash back into a Record.
// Corrupt goals_json/favorites_json degrade to empty lists rather than failing the read.
func parseRecord(id string, fields map[string]string, logger *zap.Logger) domprofile.Record {
	p := domprofile.Reconstruct(
		id,
		fields[fieldMajor],
		fields[fieldLocation],
		parseJSONList(id, fieldGoals, fields[fieldGoals], logger),
		parseJSONList(id, fieldFavorites, fields[fieldFavorites], logger),
		fields[fieldCreatedAt],
	)

	return domprofile.Record{
		Profile:  p,
		Document: fields[fieldDocument],
		Vector:   blobToVector(fields[fieldVector]),
	}
}

func parseJSONList(id, field, raw string, logger *zap.Logger) []string {
	if raw == "" {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Warn("Corrupt JSON list field in stored profile, treating as empty",
			zap.String("profile_id", id), zap.String("field", field), zap.Error(err))
		return []string{}
	}
	if items == nil {
		return []string{}
	}
	return items
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// vectorToBlob serializes []float32 to a binary little-endian string.
func vectorToBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// blobToVector deserializes a binary string back to []float32.
func blobToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
