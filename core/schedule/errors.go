package schedule

import "fmt"

// InvalidInputError reports a malformed wall time or weekday.
type InvalidInputError struct {
	Field string
	Value string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("schedule: invalid %s %q", e.Field, e.Value)
}

// UnknownTimezoneError reports an IANA identifier the resolver cannot load.
type UnknownTimezoneError struct {
	Zone string
	Err  error
}

func (e *UnknownTimezoneError) Error() string {
	return fmt.Sprintf("schedule: unknown timezone %q", e.Zone)
}

func (e *UnknownTimezoneError) Unwrap() error { return e.Err }
