package catalog

import (
	"bytes"
	"encoding/json"

	"github.com/go-faster/errors"
)

// Seed is the on-disk catalog document.
type Seed struct {
	Paintings []Painting `json:"paintings"`
	Courses   []Course   `json:"courses"`
}

// ParseSeed decodes a catalog document, rejecting unknown fields so that a
// typo in the seed fails loudly at startup.
func ParseSeed(data []byte) (*Seed, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var seed Seed
	if err := dec.Decode(&seed); err != nil {
		return nil, errors.Wrap(err, "decode catalog seed")
	}
	return &seed, nil
}

// FromSeed parses the document and builds a Static provider from it.
func FromSeed(data []byte) (*Static, error) {
	seed, err := ParseSeed(data)
	if err != nil {
		return nil, err
	}
	return NewStatic(seed.Paintings, seed.Courses)
}
