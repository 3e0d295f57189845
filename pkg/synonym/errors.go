package synonym

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSource is returned when the synonym source cannot be opened.
	ErrMissingSource = errors.New("synonym source not found")
	// ErrMalformedEntry is matched by every *MalformedEntryError.
	ErrMalformedEntry = errors.New("malformed synonym entry")
)

// MalformedEntryError reports a synonym row that cannot be parsed into typed fields.
type MalformedEntryError struct {
	Path  string
	Line  int
	Field string
	Err   error
}

func (e *MalformedEntryError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: field %s: %v", e.Path, e.Line, e.Field, e.Err)
}

func (e *MalformedEntryError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformedEntry) hold for any MalformedEntryError.
func (e *MalformedEntryError) Is(target error) bool { return target == ErrMalformedEntry }
