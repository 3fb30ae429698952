package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"impacttrip/internal/adapters/observability"
	"impacttrip/internal/domain"
	"impacttrip/internal/events"
)

type Field string

const (
	FieldLocation  Field = "location"
	FieldDateStart Field = "dateStart"
	FieldDateEnd   Field = "dateEnd"
	FieldAdults    Field = "adults"
	FieldChildren  Field = "children"
	FieldChildAges Field = "childAges"
)

const (
	msgDateOrder   = `"To" date must be the same day or after "From" date.`
	msgAgesMissing = "Please provide age for each child."
)

// ValidationSink displays validation failures; nil clears the message.
type ValidationSink interface {
	ShowValidation(err *domain.ValidationError)
}

// FormController applies field-level edits to the criteria store and gates
// submission. The store stays the source of truth; the controller only adds
// the date bounds.
type FormController struct {
	store *CriteriaStore
	bus   *events.Bus
	sink  ValidationSink
	now   func() time.Time

	mu     sync.Mutex
	floor  string
	minEnd string
}

func NewFormController(store *CriteriaStore, bus *events.Bus, sink ValidationSink, now func() time.Time) *FormController {
	if now == nil {
		now = time.Now
	}
	return &FormController{store: store, bus: bus, sink: sink, now: now}
}

// Start computes the date bounds and reconciles age slots with the stored
// child count.
func (c *FormController) Start(ctx context.Context) domain.SearchCriteria {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.store.Get()
	c.floor = c.now().Format(domain.ISODate)
	c.minEnd = c.floor
	if s.DateStart != "" {
		c.minEnd = s.DateStart
	}
	if len(s.ChildAges) != s.Children {
		ages := domain.ReconcileAges(s.ChildAges, s.Children)
		s = c.store.Save(ctx, domain.CriteriaPatch{ChildAges: &ages})
	}
	return s
}

// MinDates returns the earliest selectable start and end dates.
func (c *FormController) MinDates() (start, end string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.floor, c.minEnd
}

func (c *FormController) Criteria() domain.SearchCriteria { return c.store.Get() }

// ChangeField applies one edited field.
func (c *FormController) ChangeField(ctx context.Context, field Field, value string) (domain.SearchCriteria, error) {
	switch field {
	case FieldLocation:
		v := strings.TrimSpace(value)
		if v == "" {
			v = domain.DefaultLocation
		}
		return c.save(ctx, domain.CriteriaPatch{Location: &v}), nil

	case FieldAdults:
		n := domain.ClampAdults(value)
		return c.edited(field, c.save(ctx, domain.CriteriaPatch{Adults: &n})), nil

	case FieldDateStart:
		v := strings.TrimSpace(value)
		if err := checkDate(field, v); err != nil {
			return c.store.Get(), c.reject(err)
		}
		return c.edited(field, c.changeDateStart(ctx, v)), nil

	case FieldDateEnd:
		v := strings.TrimSpace(value)
		if err := checkDate(field, v); err != nil {
			return c.store.Get(), c.reject(err)
		}
		return c.edited(field, c.save(ctx, domain.CriteriaPatch{DateEnd: &v})), nil

	case FieldChildren:
		return c.ChangeChildren(ctx, value), nil
	}
	return c.store.Get(), c.reject(&domain.ValidationError{
		Field: string(field), Slot: -1, Message: fmt.Sprintf("unknown field %q", field),
	})
}

// changeDateStart moves the end bound to the new start and pulls an earlier
// end date forward. The end date never pushes the start back.
func (c *FormController) changeDateStart(ctx context.Context, start string) domain.SearchCriteria {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.minEnd = c.floor
	if start != "" {
		c.minEnd = start
	}
	end := c.store.Get().DateEnd
	if start != "" && end != "" && end < start {
		end = start
	}
	return c.store.Save(ctx, domain.CriteriaPatch{DateStart: &start, DateEnd: &end})
}

// ChangeChildren clamps the count and resizes the age slots, keeping the
// ages already typed.
func (c *FormController) ChangeChildren(ctx context.Context, value string) domain.SearchCriteria {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := domain.ClampChildren(value)
	ages := domain.ReconcileAges(c.store.Get().ChildAges, n)
	return c.store.Save(ctx, domain.CriteriaPatch{Children: &n, ChildAges: &ages})
}

// ChangeAge sets one age slot. An empty value blanks the slot.
func (c *FormController) ChangeAge(ctx context.Context, index int, value string) (domain.SearchCriteria, error) {
	c.mu.Lock()
	cur := c.store.Get()
	if index < 0 || index >= len(cur.ChildAges) {
		c.mu.Unlock()
		return cur, c.reject(&domain.ValidationError{
			Field: string(FieldChildAges), Slot: index,
			Message: fmt.Sprintf("There is no age field %d.", index+1),
		})
	}
	ages := cur.ChildAges
	if strings.TrimSpace(value) == "" {
		ages[index] = nil
	} else {
		a := domain.ClampAge(value)
		ages[index] = &a
	}
	out := c.store.Save(ctx, domain.CriteriaPatch{ChildAges: &ages})
	c.mu.Unlock()
	return out, nil
}

// Submit validates the whole form. On success it persists the final
// snapshot and publishes CriteriaApplied followed by FiltersChanged.
func (c *FormController) Submit(ctx context.Context) (domain.SearchCriteria, error) {
	c.mu.Lock()
	cur := c.store.Get()
	if verr := ValidateSubmit(cur); verr != nil {
		c.mu.Unlock()
		return cur, c.reject(verr)
	}
	final := c.store.Save(ctx, cur.FullPatch())
	c.mu.Unlock()

	if c.sink != nil {
		c.sink.ShowValidation(nil)
	}
	applied := final.Clone()
	c.bus.Publish(events.Event{Type: events.CriteriaApplied, Criteria: &applied})
	changed := final.Clone()
	c.bus.Publish(events.Event{Type: events.FiltersChanged, Criteria: &changed})
	return final, nil
}

// ValidateSubmit checks date ordering and, when there are children, that
// every age slot holds a value in range.
func ValidateSubmit(s domain.SearchCriteria) *domain.ValidationError {
	if s.DateStart != "" && s.DateEnd != "" && s.DateEnd < s.DateStart {
		return &domain.ValidationError{Field: string(FieldDateEnd), Slot: -1, Message: msgDateOrder}
	}
	if s.Children <= 0 {
		return nil
	}
	if len(s.ChildAges) != s.Children {
		return &domain.ValidationError{Field: string(FieldChildAges), Slot: len(s.ChildAges), Message: msgAgesMissing}
	}
	for i, a := range s.ChildAges {
		if a == nil {
			return &domain.ValidationError{
				Field: string(FieldChildAges), Slot: i,
				Message: fmt.Sprintf("Please provide age for each child (child %d has no age).", i+1),
			}
		}
		if *a < domain.MinChildAge || *a > domain.MaxChildAge {
			return &domain.ValidationError{
				Field: string(FieldChildAges), Slot: i,
				Message: fmt.Sprintf("Please enter a valid age for child %d.", i+1),
			}
		}
	}
	return nil
}

func checkDate(field Field, v string) *domain.ValidationError {
	if v == "" || domain.IsISODate(v) {
		return nil
	}
	return &domain.ValidationError{
		Field: string(field), Slot: -1, Message: fmt.Sprintf("%q is not a date (YYYY-MM-DD).", v),
	}
}

func (c *FormController) save(ctx context.Context, p domain.CriteriaPatch) domain.SearchCriteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Save(ctx, p)
}

// edited publishes CriteriaEdited outside the lock and passes s through.
func (c *FormController) edited(field Field, s domain.SearchCriteria) domain.SearchCriteria {
	cp := s.Clone()
	c.bus.Publish(events.Event{Type: events.CriteriaEdited, Criteria: &cp, Field: string(field)})
	return s
}

func (c *FormController) reject(err *domain.ValidationError) error {
	observability.ObserveValidation(err.Field)
	if c.sink != nil {
		c.sink.ShowValidation(err)
	}
	return err
}
