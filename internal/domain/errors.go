package domain

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidTopic is returned when a topic is empty after normalization.
var ErrInvalidTopic = errors.New("topic must not be empty")

// SchemaError reports a JSON document that does not match the expected
// field set or field types.
type SchemaError struct {
	Field  string
	Reason string
	Cause  error
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "schema error: " + e.Reason
	}
	return fmt.Sprintf("schema error: field '%s' %s", e.Field, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

func (e *SchemaError) Is(target error) bool {
	return reflect.TypeOf(e) == reflect.TypeOf(target)
}
