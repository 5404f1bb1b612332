package relevance

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned before any backend call when the query or
	// page set is empty.
	ErrInvalidInput       = errors.New("invalid input")
	ErrBackendUnavailable = errors.New("scoring backend unavailable")
	ErrMalformedResponse  = errors.New("malformed scoring response")
)

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// Attempt describes one failed backend call.
type Attempt struct {
	Stage    string
	Provider string
	Model    string
	Kind     error
	Err      error
}

func (a Attempt) String() string {
	name := a.Provider
	if a.Model != "" {
		name += "/" + a.Model
	}
	return fmt.Sprintf("%s %s: %v: %v", a.Stage, name, a.Kind, a.Err)
}

// ScoringError reports the batch that exhausted both backends. Kind is the
// failure class of the last attempt.
type ScoringError struct {
	Batch     int
	FirstPage int
	LastPage  int
	Kind      error
	Attempts  []Attempt
}

func (e *ScoringError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.String())
	}
	return fmt.Sprintf("score batch %d (pages %d-%d): %v [%s]", e.Batch, e.FirstPage, e.LastPage, e.Kind, strings.Join(parts, "; "))
}

// Unwrap exposes Kind and the underlying causes, so errors.Is matches the
// reported class and, for example, context.DeadlineExceeded.
func (e *ScoringError) Unwrap() []error {
	out := make([]error, 0, len(e.Attempts)+1)
	out = append(out, e.Kind)
	for _, a := range e.Attempts {
		if a.Err != nil {
			out = append(out, a.Err)
		}
	}
	return out
}
