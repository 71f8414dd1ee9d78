package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed input: filters, provider id, k, pagination.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing paper or a missing provider vector.
	ErrNotFound = errors.New("not found")
	// ErrProvider signals an embedding backend failure or a wrong vector dimension.
	ErrProvider = errors.New("embedding provider error")
	// ErrIndex signals an unreachable document index or a malformed index reply.
	ErrIndex = errors.New("index unavailable")
)

// NotFoundKind tells which resource is missing.
type NotFoundKind string

const (
	// NotFoundPaper means the paper itself does not exist.
	NotFoundPaper NotFoundKind = "paper"
	// NotFoundVector means the paper exists but has no vector for the provider.
	NotFoundVector NotFoundKind = "vector"
)

// NotFoundError wraps ErrNotFound with the missing resource.
type NotFoundError struct {
	Kind     NotFoundKind
	PaperID  string
	Provider string
}

func (e *NotFoundError) Error() string {
	if e.Kind == NotFoundVector {
		return fmt.Sprintf("%s: paper %q has no %s vector", ErrNotFound.Error(), e.PaperID, e.Provider)
	}
	return fmt.Sprintf("%s: paper %q", ErrNotFound.Error(), e.PaperID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewPaperNotFound creates a not-found error for a missing paper.
func NewPaperNotFound(paperID string) error {
	return &NotFoundError{Kind: NotFoundPaper, PaperID: paperID}
}

// NewVectorNotFound creates a not-found error for a missing provider vector.
func NewVectorNotFound(paperID, provider string) error {
	return &NotFoundError{Kind: NotFoundVector, PaperID: paperID, Provider: provider}
}

// DimensionMismatchError wraps ErrProvider when a backend returns a vector of the wrong size.
type DimensionMismatchError struct {
	Provider string
	Want     int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: %s returned %d dimensions, want %d",
		ErrProvider.Error(), e.Provider, e.Got, e.Want)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrProvider }
