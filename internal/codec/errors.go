package codec

import "fmt"

// OverflowError reports a value too large for its field. It is local to one
// field write and never corrupts the record buffer.
type OverflowError struct {
	Field   string
	Message string
}

func (e *OverflowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("field %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// SpecError reports a malformed field-creation format literal, rejected
// before any mutation occurs.
type SpecError struct {
	Message string
}

func (e *SpecError) Error() string { return e.Message }

func specErrorf(format string, args ...any) error {
	return &SpecError{Message: fmt.Sprintf(format, args...)}
}
