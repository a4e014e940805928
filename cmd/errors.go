package cmd

import "fmt"

// InvalidInputError reports a bad flag, argument or config value.
type InvalidInputError struct {
	Field string
	Err   error
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %v", e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// SourceError wraps a failure to load the domain list from a file or URL.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("load domains from %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
