package timeconv

import "fmt"

// ParseError reports text that does not decode to an Instant.
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", e.Reason, e.Input, e.Err)
	}
	return fmt.Sprintf("%s %q", e.Reason, e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
