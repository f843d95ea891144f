// Package vocab holds the brand and generic-type dictionaries used by item
// name normalization. Order matters: type matching is first-hit in slice
// order, so the lists are versioned data, not sets.
package vocab

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Vocabulary struct {
	Version string   `json:"version"`
	Brands  []string `json:"brands"`
	Types   []string `json:"types"`
}

// Default returns the built-in v1 dictionaries.
func Default() Vocabulary {
	return Vocabulary{
		Version: "v1",
		Brands: []string{
			"whiskas", "tetley", "kellogg's", "kelloggs", "campbell's", "campbells", "heinz",
			"nestle", "kraft", "general mills", "cheerios", "oreo", "oreos", "pringles", "lays", "doritos",
			"ice river", "green bottle", "great value", "wheat thins", "vegetable thins", "raid",
		},
		Types: []string{
			"water", "toothpaste", "deodorant", "antiperspirant", "soap", "shampoo", "conditioner",
			"lotion", "tea", "coffee", "cereal", "pasta", "rice", "beans", "sauce", "salsa", "cleaner",
			"peanut butter", "jam", "jelly", "tuna", "chicken", "beef", "flour", "sugar", "salt", "oil",
			"crackers", "cookies", "soup", "insect killer", "spray",
		},
	}
}

// LoadFile reads a vocabulary JSON asset, lower-casing every entry. The file
// replaces the defaults wholesale so ordering stays under the operator's
// control.
func LoadFile(path string) (Vocabulary, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, err
	}

	var v Vocabulary
	if err := json.Unmarshal(blob, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	if len(v.Types) == 0 {
		return Vocabulary{}, fmt.Errorf("vocabulary %s has no types", path)
	}

	for i := range v.Brands {
		v.Brands[i] = strings.ToLower(strings.TrimSpace(v.Brands[i]))
	}
	for i := range v.Types {
		v.Types[i] = strings.ToLower(strings.TrimSpace(v.Types[i]))
	}
	return v, nil
}

// Load returns the vocabulary at path, or the defaults when path is empty.
func Load(path string) (Vocabulary, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
