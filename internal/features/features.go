// Package features turns the CRM's delimited feature string into the fixed
// five-bucket taxonomy stored on every property.
package features

import (
	"sort"
	"strings"
	"unicode"
)

// Delimiter separates feature phrases in the CRM feature field.
const Delimiter = "|##|"

// Category names. Order matters, see Precedence.
const (
	Interior  = "interior"
	Exterior  = "exterior"
	Luxury    = "luxury"
	Amenities = "amenities"
	Utilities = "utilities"
)

// Precedence is the order in which categories are tested. A phrase that
// contains keywords of several categories lands in the first one listed here.
// Amenities is also the fallback for phrases matching nothing.
var Precedence = []string{Interior, Exterior, Luxury, Amenities, Utilities}

// Fallback receives phrases that match no keyword.
const Fallback = Amenities

var keywords = map[string][]string{
	Interior: {
		"kitchen", "equipped kitchen", "bathroom", "bedroom", "living room",
		"double glazed", "air conditioning", "heating", "floor", "ceiling",
		"storage", "lift", "elevator", "fitted", "wardrobe",
	},
	Exterior: {
		"garden", "private garden", "terrace", "balcony", "parking",
		"private parking", "garage", "pool", "private pool", "fence",
		"gate", "driveway", "landscape", "patio", "bbq area",
	},
	Luxury: {
		"spa", "sauna", "jacuzzi", "gym", "wine cellar",
		"home theater", "smart home", "security system",
		"infinity pool", "tennis court", "cinema room",
	},
	Amenities: {
		"wifi", "internet", "cable", "satellite", "intercom",
		"alarm", "surveillance", "fitness", "playground",
		"community pool", "gated community",
	},
	Utilities: {
		"water", "electricity", "gas", "sewage", "solar",
		"generator", "heating system", "cooling system",
		"air conditioning unit", "central heating",
	},
}

// Features maps each category to its sorted, de-duplicated phrases.
type Features map[string][]string

// Empty returns the structure with all five categories present and empty.
func Empty() Features {
	f := make(Features, len(Precedence))
	for _, c := range Precedence {
		f[c] = []string{}
	}
	return f
}

// Categorize splits raw on Delimiter, sanitizes each phrase and files it
// under the first category whose keyword it contains.
func Categorize(raw string) Features {
	out := Empty()
	if strings.TrimSpace(raw) == "" {
		return out
	}
	for _, token := range strings.Split(raw, Delimiter) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		clean := Sanitize(token)
		if clean == "" {
			continue
		}
		cat := Classify(clean)
		out[cat] = append(out[cat], clean)
	}
	for _, c := range Precedence {
		out[c] = dedupeSorted(out[c])
	}
	return out
}

// Sanitize keeps letters, digits, whitespace and hyphens, lowercases and
// trims the result.
func Sanitize(phrase string) string {
	var b strings.Builder
	b.Grow(len(phrase))
	for _, r := range phrase {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(strings.ToLower(b.String()))
}

// Classify returns the category for an already sanitized phrase.
func Classify(phrase string) string {
	for _, c := range Precedence {
		for _, kw := range keywords[c] {
			if strings.Contains(phrase, kw) {
				return c
			}
		}
	}
	return Fallback
}

// Validate reports whether f is safe to store: every category is present,
// holds a non-nil slice (nil would be persisted as null), and contains no
// blank phrase.
func Validate(f Features) bool {
	if f == nil {
		return false
	}
	for _, c := range Precedence {
		phrases, ok := f[c]
		if !ok || phrases == nil {
			return false
		}
	}
	for _, phrases := range f {
		if phrases == nil {
			return false
		}
		for _, p := range phrases {
			if strings.TrimSpace(p) == "" {
				return false
			}
		}
	}
	return true
}

func dedupeSorted(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	sort.Strings(in)
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
