package pipeline

import (
	"strings"

	"carecount/internal"
	"carecount/internal/util"
	"carecount/internal/vocab"
)

// Normalizer maps noisy recognizer output to a short, human-usable item
// name. Dictionaries are passed in explicitly so tests can run against
// synthetic vocabularies.
type Normalizer struct {
	vocab vocab.Vocabulary
}

func NewNormalizer(v vocab.Vocabulary) *Normalizer {
	return &Normalizer{vocab: v}
}

var trademarkReplacer = strings.NewReplacer("®", "", "™", "")

// Normalize is pure over the vocabulary. Empty or blank input yields an
// empty name; anything else yields a non-empty name of at most
// internal.MaxItemNameLen runes.
//
// Brand tokens are stripped as noise; the first generic-type substring hit
// in vocabulary order wins, even when a later entry would match "better".
// That first-match rule is load-bearing for reproducibility across
// resubmissions of the same text.
func (n *Normalizer) Normalize(raw string) internal.CanonicalItemName {
	s := strings.TrimSpace(raw)
	if s == "" {
		return internal.CanonicalItemName{}
	}

	low := trademarkReplacer.Replace(strings.ToLower(s))

	matchedBrand := ""
	stripped := low
	for _, brand := range n.vocab.Brands {
		if strings.Contains(stripped, brand) {
			if matchedBrand == "" {
				matchedBrand = brand
			}
			stripped = strings.ReplaceAll(stripped, brand, "")
		}
	}

	matchedType := ""
	for _, typ := range n.vocab.Types {
		if strings.Contains(stripped, typ) {
			matchedType = typ
			break
		}
	}

	value := ""
	switch {
	case matchedType != "":
		value = util.TitleCase(matchedType)
	default:
		cleaned := util.CollapseSpaces(stripped)
		if cleaned == "" {
			// Input was nothing but brand tokens; keep the original text
			// rather than returning an empty name for non-empty input.
			cleaned = util.CollapseSpaces(low)
		}
		value = util.TitleCase(cleaned)
	}

	return internal.CanonicalItemName{
		Value:        util.Truncate(value, internal.MaxItemNameLen),
		MatchedBrand: matchedBrand,
		MatchedType:  matchedType,
	}
}

// Usable reports whether a normalized name should stop the recognizer
// chain: non-empty and not the Unknown sentinel.
func Usable(name internal.CanonicalItemName) bool {
	if name.IsEmpty() {
		return false
	}
	return !strings.EqualFold(name.Value, internal.UnknownItemName)
}
