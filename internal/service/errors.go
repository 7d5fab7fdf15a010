package service

import (
	"fmt"

	"github.com/loog-project/roster/internal/model"
)

// UnknownEntityError is returned when an operation refers to an entity that
// does not exist. Entity carries the rejected payload, if there was one.
type UnknownEntityError struct {
	Kind   model.Kind
	ID     int64
	Entity any
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("don't know %s %d", e.Kind, e.ID)
}

// InvalidReferenceError is returned when an entity references another entity that does not exist.
type InvalidReferenceError struct {
	Field string
	Kind  model.Kind
	ID    int64
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("%s references unknown %s %d", e.Field, e.Kind, e.ID)
}

// ConflictError is returned when a change would violate a relationship rule,
// e.g. assigning a coach that already coaches another team.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// InvalidInputError wraps client mistakes like broken filter expressions or patches.
type InvalidInputError struct {
	What string
	Err  error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.What, e.Err)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}
