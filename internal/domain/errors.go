package domain

import "errors"

var ErrNotFound = errors.New("not found")

// ValidationError blocks a submission or a field change. Slot is the 0-based
// child age slot when Field is "childAges", -1 otherwise.
type ValidationError struct {
	Field   string `json:"field"`
	Slot    int    `json:"slot"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Message }
