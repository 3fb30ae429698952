package app

import (
	"crypto/sha1"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"impacttrip/internal/domain"
)

/********** alias registries (single source of truth) **********/

var opportunityAliases = map[string][]string{
	"id":       {"id", "slug", "uuid", "opportunity_id"},
	"title":    {"title", "name", "headline"},
	"org":      {"org", "organization", "organisation", "host", "host.name"},
	"section":  {"section", "lane", "category"},
	"duration": {"duration", "time", "length"},
	"fee":      {"fee", "price", "cost"},
	"image":    {"image", "img", "photo", "cover", "image.url"},
}

var hotelAliases = map[string][]string{
	"id":       {"id", "hotel_id", "hotelId", "slug"},
	"name":     {"name", "title", "hotel_name"},
	"area":     {"area", "neighbourhood", "neighborhood", "district", "city"},
	"thumb":    {"thumb", "thumbnail", "image", "photo"},
	"currency": {"currency", "currencySymbol", "currency_symbol"},
	"url":      {"affiliateUrl", "affiliate_url", "bookingUrl", "booking_url", "url"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the string at path, formatting numbers; "" otherwise.
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstIntFlexible: int from several paths (float64/int/leading-digit string).
func firstIntFlexible(m map[string]any, paths ...string) *int {
	for _, k := range paths {
		v := lookupAny(m, k)
		if v == nil {
			continue
		}
		if n := domain.ParseIntSafe(v, math.MinInt); n != math.MinInt {
			return &n
		}
	}
	return nil
}

// firstSliceStrings: accept []any of strings or {name/label/code}, or a
// comma separated string.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		switch raw := lookupAny(m, k).(type) {
		case []any:
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if s := strings.TrimSpace(t); s != "" {
						out = append(out, s)
					}
				case map[string]any:
					for _, f := range []string{"name", "label", "code"} {
						if s, ok := t[f].(string); ok && strings.TrimSpace(s) != "" {
							out = append(out, strings.TrimSpace(s))
							break
						}
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			var out []string
			for _, p := range strings.Split(raw, ",") {
				if s := strings.TrimSpace(p); s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

type miss struct {
	position int
	reason   string
}

/********** opportunity mapper **********/

func mapOpportunities(in []map[string]any) ([]domain.CatalogItem, []miss) {
	out := make([]domain.CatalogItem, 0, len(in))
	var misses []miss
	seen := make(map[string]struct{}, len(in))
	for i, raw := range in {
		it, reason := mapOpportunity(raw)
		if reason == "" {
			if _, dup := seen[it.ID]; dup {
				reason = "duplicate id " + it.ID
			}
		}
		if reason != "" {
			misses = append(misses, miss{position: i, reason: reason})
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out, misses
}

func mapOpportunity(p map[string]any) (domain.CatalogItem, string) {
	id := deref(firstNonEmptyAlias(p, opportunityAliases, "id"))
	if id == "" {
		return domain.CatalogItem{}, "missing id"
	}
	title := deref(firstNonEmptyAlias(p, opportunityAliases, "title"))
	if title == "" {
		return domain.CatalogItem{}, "missing title"
	}
	return domain.CatalogItem{
		ID:        id,
		Title:     title,
		Org:       deref(firstNonEmptyAlias(p, opportunityAliases, "org")),
		Section:   strings.ToLower(deref(firstNonEmptyAlias(p, opportunityAliases, "section"))),
		Duration:  deref(firstNonEmptyAlias(p, opportunityAliases, "duration")),
		Languages: firstSliceStrings(p, "languages", "langs", "language"),
		Tags:      firstSliceStrings(p, "tags", "labels"),
		Fee:       firstNonEmptyAlias(p, opportunityAliases, "fee"),
		MinAge:    firstIntFlexible(p, "minAge", "min_age", "ageMin"),
		Image:     firstNonEmptyAlias(p, opportunityAliases, "image"),
	}, ""
}

/********** hotel mapper **********/

func mapHotels(in []map[string]any) ([]domain.Hotel, []miss) {
	out := make([]domain.Hotel, 0, len(in))
	var misses []miss
	for i, raw := range in {
		h, reason := mapHotel(raw)
		if reason != "" {
			misses = append(misses, miss{position: i, reason: reason})
			continue
		}
		out = append(out, h)
	}
	return out, misses
}

func mapHotel(p map[string]any) (domain.Hotel, string) {
	name := deref(firstNonEmptyAlias(p, hotelAliases, "name"))
	if name == "" {
		return domain.Hotel{}, "missing name"
	}
	area := deref(firstNonEmptyAlias(p, hotelAliases, "area"))

	// ID → prefer explicit; else synthesize a stable hash of name+area.
	id := deref(firstNonEmptyAlias(p, hotelAliases, "id"))
	if id == "" {
		sum := sha1.Sum([]byte(strings.ToLower(name + "|" + area)))
		id = "h-" + hex.EncodeToString(sum[:8])
	}

	h := domain.Hotel{
		ID:           id,
		Name:         name,
		Area:         area,
		Thumb:        deref(firstNonEmptyAlias(p, hotelAliases, "thumb")),
		Currency:     deref(firstNonEmptyAlias(p, hotelAliases, "currency")),
		AffiliateURL: deref(firstNonEmptyAlias(p, hotelAliases, "url")),
	}
	if f := getFloatFlexible(p, "pricePerNight", "price_per_night", "price", "rate"); f != nil {
		h.PricePerNight = *f
	}
	return h, ""
}
