package scoring

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
)

// NamingDivergence measures how far an identifier strays from its own
// language-neutral canonical form (lower-case, separator-free): one minus
// the normalized Levenshtein similarity between the two. Mixed-convention
// names like "get_UserByID" diverge more than plain "getUserByID" or
// "get_user_by_id", which feeds the style scoring category as the
// "naming_divergence" feature.
func NamingDivergence(name string) float64 {
	if name == "" {
		return 0
	}
	canonical := canonicalIdentifier(name)
	if canonical == name {
		return 0
	}
	similarity, err := edlib.StringsSimilarity(name, canonical, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	divergence := 1 - float64(similarity)
	if divergence < 0 {
		return 0
	}
	if divergence > 1 {
		return 1
	}
	return divergence
}

// canonicalIdentifier lowers the name and strips separators, the common
// denominator both snake_case and camelCase collapse onto.
func canonicalIdentifier(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r == '_' || r == '-' || r == '$' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
