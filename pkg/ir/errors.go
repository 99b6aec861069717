package ir

import (
	"fmt"
	"strings"
)

// IntrospectionError is a fatal mapping failure naming the model and field.
type IntrospectionError struct {
	Model  string `json:"model"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (e *IntrospectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Field == "" {
		return fmt.Sprintf("introspect: model %q: %s", e.Model, e.Reason)
	}
	return fmt.Sprintf("introspect: model %q field %q: %s", e.Model, e.Field, e.Reason)
}

// Errorf builds an IntrospectionError.
func Errorf(model, field, format string, args ...any) *IntrospectionError {
	return &IntrospectionError{Model: model, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IntrospectionErrors aggregates every failure of a run.
type IntrospectionErrors []*IntrospectionError

func (errs IntrospectionErrors) Error() string {
	switch len(errs) {
	case 0:
		return "introspect: no errors"
	case 1:
		return errs[0].Error()
	}
	lines := make([]string, 0, len(errs)+1)
	lines = append(lines, fmt.Sprintf("introspect: %d errors", len(errs)))
	for _, err := range errs {
		lines = append(lines, "  "+err.Error())
	}
	return strings.Join(lines, "\n")
}

// Err returns nil for an empty list so callers can return it directly.
func (errs IntrospectionErrors) Err() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
