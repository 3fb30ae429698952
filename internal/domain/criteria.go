package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLocation = "Porto, Portugal"

	MinAdults     = 1
	MaxAdults     = 99
	DefaultAdults = 1

	MinChildren     = 0
	MaxChildren     = 10
	DefaultChildren = 0

	MinChildAge = 0
	MaxChildAge = 17
)

// SearchCriteria is the persisted trip search. ChildAges holds one slot per
// child; a nil slot is an age the user has not typed yet.
type SearchCriteria struct {
	Location  string `json:"location"`
	DateStart string `json:"dateStart"`
	DateEnd   string `json:"dateEnd"`
	Adults    int    `json:"adults"`
	Children  int    `json:"children"`
	ChildAges []*int `json:"childAges"`
}

func DefaultCriteria() SearchCriteria {
	return SearchCriteria{
		Location:  DefaultLocation,
		Adults:    DefaultAdults,
		Children:  DefaultChildren,
		ChildAges: []*int{},
	}
}

// Clone copies the age slots so callers never share them with the store.
func (c SearchCriteria) Clone() SearchCriteria {
	out := c
	out.ChildAges = make([]*int, len(c.ChildAges))
	for i, a := range c.ChildAges {
		if a != nil {
			v := *a
			out.ChildAges[i] = &v
		}
	}
	return out
}

// CriteriaPatch is a partial update; nil fields are left untouched.
type CriteriaPatch struct {
	Location  *string
	DateStart *string
	DateEnd   *string
	Adults    *int
	Children  *int
	ChildAges *[]*int
}

func (c SearchCriteria) Apply(p CriteriaPatch) SearchCriteria {
	out := c.Clone()
	if p.Location != nil {
		out.Location = *p.Location
	}
	if p.DateStart != nil {
		out.DateStart = *p.DateStart
	}
	if p.DateEnd != nil {
		out.DateEnd = *p.DateEnd
	}
	if p.Adults != nil {
		out.Adults = *p.Adults
	}
	if p.Children != nil {
		out.Children = *p.Children
	}
	if p.ChildAges != nil {
		out.ChildAges = SearchCriteria{ChildAges: *p.ChildAges}.Clone().ChildAges
	}
	return out
}

// FullPatch turns a whole criteria value into a patch touching every field.
func (c SearchCriteria) FullPatch() CriteriaPatch {
	c = c.Clone()
	return CriteriaPatch{
		Location:  &c.Location,
		DateStart: &c.DateStart,
		DateEnd:   &c.DateEnd,
		Adults:    &c.Adults,
		Children:  &c.Children,
		ChildAges: &c.ChildAges,
	}
}

// ParseIntSafe reads a leading base-10 integer the way a browser's parseInt
// does ("12abc" is 12, "3.9" is 3). Anything without leading digits yields def.
// Values beyond the int range saturate.
func ParseIntSafe(v any, def int) int {
	if n, ok := ParseInt(v); ok {
		return n
	}
	return def
}

// ParseInt is ParseIntSafe that reports whether v held a number.
func ParseInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		switch {
		case math.IsNaN(t):
			return 0, false
		case t >= float64(math.MaxInt):
			return math.MaxInt, true
		case t <= float64(math.MinInt):
			return math.MinInt, true
		}
		return int(math.Trunc(t)), true
	case string:
		return parseIntPrefix(t)
	}
	return 0, false
}

func parseIntPrefix(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) {
		if s[0] == '-' {
			return math.MinInt, true
		}
		return math.MaxInt, true
	}
	return n, err == nil
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampAdults(v any) int {
	return Clamp(ParseIntSafe(v, DefaultAdults), MinAdults, MaxAdults)
}

func ClampChildren(v any) int {
	return Clamp(ParseIntSafe(v, DefaultChildren), MinChildren, MaxChildren)
}

func ClampAge(v any) int {
	return Clamp(ParseIntSafe(v, MinChildAge), MinChildAge, MaxChildAge)
}

// ReconcileAges resizes slots to n, keeping existing values by index and
// leaving new slots blank.
func ReconcileAges(ages []*int, n int) []*int {
	if n < 0 {
		n = 0
	}
	out := make([]*int, n)
	for i := 0; i < n && i < len(ages); i++ {
		if ages[i] != nil {
			v := *ages[i]
			out[i] = &v
		}
	}
	return out
}

const ISODate = "2006-01-02"

// IsISODate reports whether s is a real calendar date in YYYY-MM-DD form.
func IsISODate(s string) bool {
	if len(s) != len(ISODate) {
		return false
	}
	_, err := time.Parse(ISODate, s)
	return err == nil
}
