package decode

import (
	"errors"
	"strings"
)

// FieldError describes one member of a decoded object that failed validation.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors represents a collection of field errors.
type FieldErrors []FieldError

// Error implements the error interface, returning a human-readable
// summary of all field errors.
func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return strings.Join(parts, "; ")
}

// Fields returns the failing fields keyed by name.
func (fe FieldErrors) Fields() map[string]string {
	m := make(map[string]string, len(fe))
	for _, fld := range fe {
		m[fld.Field] = fld.Err
	}
	return m
}

// GetFieldErrors extracts FieldErrors from anywhere in err's chain.
func GetFieldErrors(err error) FieldErrors {
	var fe FieldErrors
	if !errors.As(err, &fe) {
		return nil
	}
	return fe
}
