package profile

// Record is a stored profile hydrated with its rendered document and embedding.
type Record struct {
	Profile  Profile
	Document string
	Vector   []float32
}
