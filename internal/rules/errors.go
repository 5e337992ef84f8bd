package rules

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField   = errors.New("missing field")
	ErrEmptyBound     = errors.New("empty range bound")
	ErrNotNumeric     = errors.New("not a number")
	ErrOutOfRange     = errors.New("value out of range")
	ErrComponentCount = errors.New("address must have 4 components")
	ErrReversedRange  = errors.New("range end is below its start")
)

// ValidationError reports a rule that could not be turned into a Term.
// Position is the zero-based index of the rule in the input sequence.
type ValidationError struct {
	Position int
	Rule     Rule
	Field    string
	Value    string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rule %d (%s): invalid %s %q: %v", e.Position, e.Rule, e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
