package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// AnyLanguage is the wildcard language token; it never coexists with others.
const AnyLanguage = "Any"

type Duration string

const (
	DurationAny   Duration = "any"
	Duration1h    Duration = "1h"
	Duration2to3h Duration = "2to3h"
	DurationHalf  Duration = "half"
	DurationFull  Duration = "full"
)

var durations = []Duration{DurationAny, Duration1h, Duration2to3h, DurationHalf, DurationFull}

func Durations() []Duration { return append([]Duration(nil), durations...) }

// ParseDuration accepts the bucket names plus the "2–3h"/"2-3h" labels the
// facet chips use.
func ParseDuration(s string) (Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "any", "":
		return DurationAny, nil
	case "1h":
		return Duration1h, nil
	case "2to3h", "2–3h", "2-3h":
		return Duration2to3h, nil
	case "half":
		return DurationHalf, nil
	case "full":
		return DurationFull, nil
	}
	return "", fmt.Errorf("unknown duration bucket %q", s)
}

// FacetSelection is an immutable snapshot of the active facets.
type FacetSelection struct {
	languages map[string]struct{}
	duration  Duration
}

func DefaultFacets() FacetSelection {
	return FacetSelection{
		languages: map[string]struct{}{AnyLanguage: {}},
		duration:  DurationAny,
	}
}

// NewFacetSelection normalizes the language set: "Any" wins over concrete
// tokens and an empty set becomes {"Any"}.
func NewFacetSelection(langs []string, d Duration) FacetSelection {
	set := make(map[string]struct{}, len(langs))
	for _, l := range langs {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if l == AnyLanguage {
			set = map[string]struct{}{AnyLanguage: {}}
			break
		}
		set[l] = struct{}{}
	}
	if len(set) == 0 {
		set[AnyLanguage] = struct{}{}
	}
	if d == "" {
		d = DurationAny
	}
	return FacetSelection{languages: set, duration: d}
}

func (f FacetSelection) Duration() Duration {
	if f.duration == "" {
		return DurationAny
	}
	return f.duration
}

func (f FacetSelection) HasLanguage(tok string) bool {
	if f.languages == nil {
		return tok == AnyLanguage
	}
	_, ok := f.languages[tok]
	return ok
}

func (f FacetSelection) IsAny() bool { return f.HasLanguage(AnyLanguage) }

// Languages returns the active tokens sorted.
func (f FacetSelection) Languages() []string {
	if f.languages == nil {
		return []string{AnyLanguage}
	}
	out := make([]string, 0, len(f.languages))
	for l := range f.languages {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// WithAny collapses the language set to the wildcard.
func (f FacetSelection) WithAny() FacetSelection {
	return FacetSelection{languages: map[string]struct{}{AnyLanguage: {}}, duration: f.Duration()}
}

// WithLanguageToggled flips a concrete token and drops "Any". Toggling "Any"
// is the same as WithAny.
func (f FacetSelection) WithLanguageToggled(tok string) FacetSelection {
	tok = strings.TrimSpace(tok)
	if tok == AnyLanguage {
		return f.WithAny()
	}
	if tok == "" {
		return f
	}
	set := make(map[string]struct{}, len(f.languages)+1)
	for l := range f.languages {
		if l != AnyLanguage {
			set[l] = struct{}{}
		}
	}
	if _, ok := set[tok]; ok {
		delete(set, tok)
	} else {
		set[tok] = struct{}{}
	}
	if len(set) == 0 {
		set[AnyLanguage] = struct{}{}
	}
	return FacetSelection{languages: set, duration: f.Duration()}
}

func (f FacetSelection) WithDuration(d Duration) FacetSelection {
	out := f.WithLanguagesCopy()
	out.duration = d
	return out
}

// WithLanguagesCopy returns a snapshot that shares nothing with f.
func (f FacetSelection) WithLanguagesCopy() FacetSelection {
	return NewFacetSelection(f.Languages(), f.Duration())
}

type facetJSON struct {
	Languages []string `json:"languages"`
	Duration  Duration `json:"duration"`
}

func (f FacetSelection) MarshalJSON() ([]byte, error) {
	return json.Marshal(facetJSON{Languages: f.Languages(), Duration: f.Duration()})
}

func (f *FacetSelection) UnmarshalJSON(b []byte) error {
	var raw facetJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d := DurationAny
	if raw.Duration != "" {
		pd, err := ParseDuration(string(raw.Duration))
		if err != nil {
			return err
		}
		d = pd
	}
	*f = NewFacetSelection(raw.Languages, d)
	return nil
}
