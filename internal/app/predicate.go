package app

import (
	"strings"

	"impacttrip/internal/domain"
)

// durationPatterns maps each bucket to the substrings that put a duration
// label in it. Buckets are checked independently, so "2h-3h half day" sits in
// more than one.
var durationPatterns = map[domain.Duration][]string{
	domain.Duration1h:    {"1h"},
	domain.Duration2to3h: {"2–3h", "2-3h", "2h", "3h"},
	domain.DurationHalf:  {"half", "3–4h", "3-4h", "3h", "4h"},
	domain.DurationFull:  {"full", "6–8h", "6-8h", "6h", "7h", "8h"},
}

// Matches reports whether item passes both the language and duration facets.
func Matches(item domain.CatalogItem, f domain.FacetSelection) bool {
	return matchesLanguage(item, f) && matchesDuration(item.Duration, f.Duration())
}

func matchesLanguage(item domain.CatalogItem, f domain.FacetSelection) bool {
	if f.IsAny() {
		return true
	}
	for _, l := range item.Languages {
		if f.HasLanguage(l) {
			return true
		}
	}
	return false
}

func matchesDuration(label string, d domain.Duration) bool {
	if d == domain.DurationAny {
		return true
	}
	return inBucket(strings.ToLower(label), d)
}

func inBucket(lower string, d domain.Duration) bool {
	for _, p := range durationPatterns[d] {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// DurationBuckets lists every bucket a duration label falls into, in facet
// order.
func DurationBuckets(label string) []domain.Duration {
	lower := strings.ToLower(label)
	var out []domain.Duration
	for _, d := range domain.Durations() {
		if d != domain.DurationAny && inBucket(lower, d) {
			out = append(out, d)
		}
	}
	return out
}
