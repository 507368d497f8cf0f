package money

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeAmount    = errors.New("negative_amount")
	ErrNonPositiveAmount = errors.New("non_positive_amount")
)

// FieldError names the record and field that failed validation.
// Index is -1 for fields that are not part of a list.
type FieldError struct {
	Record string
	Index  int
	Field  string
	Err    error
}

func NewFieldError(record string, index int, field string, err error) *FieldError {
	return &FieldError{Record: record, Index: index, Field: field, Err: err}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path(), e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Path renders the failing location, e.g. "items[2].rate".
func (e *FieldError) Path() string {
	if e.Index < 0 {
		if e.Record == "" {
			return e.Field
		}
		return e.Record + "." + e.Field
	}
	return fmt.Sprintf("%s[%d].%s", e.Record, e.Index, e.Field)
}
