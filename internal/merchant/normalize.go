// Package merchant maps raw merchant strings to stable, user-controlled
// identities: a deterministic normalized key, and an alias layer that
// resolves keys to display names and categories.
package merchant

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// suffixMarkers separate a merchant name from trailing reference codes
// ("SWIGGY*ORDER123", "AMZN#99", "UPI-FOO_BAR").
const suffixMarkers = "*#@-_"

// Normalize derives the canonical lookup key for a raw merchant string:
// uppercase, everything from the first suffix marker on removed, whitespace
// collapsed, trimmed. Total and idempotent; it returns an empty key only
// when the input contains no letters. This is the single normalization used
// for every alias read and write.
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))

	// A marker at position zero is not a suffix; keep scanning from there
	// would empty the key for inputs like "-FOO".
	if idx := strings.IndexAny(s, suffixMarkers); idx > 0 {
		s = s[:idx]
	}

	return strings.Join(strings.Fields(s), " ")
}

var titler = cases.Title(language.English)

// DefaultDisplayName prettifies a raw merchant for display when no alias
// exists ("SWIGGY FOODS" -> "Swiggy Foods"). Purely cosmetic; lookups always
// go through Normalize.
func DefaultDisplayName(raw string) string {
	key := Normalize(raw)
	if key == "" {
		return strings.TrimSpace(raw)
	}
	return titler.String(strings.ToLower(key))
}
