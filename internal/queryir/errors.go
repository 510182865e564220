package queryir

import (
	"errors"
	"fmt"
)

// ConstructionError reports a rule tree or descriptor that cannot be turned
// into a query. Construction errors are fatal and returned to the caller
// immediately.
type ConstructionError struct {
	// Code identifies the error category.
	Code ConstructionErrorCode

	// Message is a human-readable description.
	Message string

	// GroupID identifies the offending group, when known.
	GroupID string

	// RuleID identifies the offending rule, when known.
	RuleID string
}

// ConstructionErrorCode categorizes construction errors.
type ConstructionErrorCode string

const (
	// ErrCodeInvalidCombinator indicates a group combinator other than and/or.
	ErrCodeInvalidCombinator ConstructionErrorCode = "INVALID_COMBINATOR"

	// ErrCodeMissingValue indicates an operator received too few values.
	ErrCodeMissingValue ConstructionErrorCode = "MISSING_VALUE"

	// ErrCodeInvalidValue indicates a value that cannot be coerced to the
	// rule's declared type.
	ErrCodeInvalidValue ConstructionErrorCode = "INVALID_VALUE"

	// ErrCodeMalformedDescriptor indicates a descriptor or tree with an
	// unusable shape.
	ErrCodeMalformedDescriptor ConstructionErrorCode = "MALFORMED_DESCRIPTOR"
)

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	switch {
	case e.RuleID != "":
		return fmt.Sprintf("%s: %s (rule=%s)", e.Code, e.Message, e.RuleID)
	case e.GroupID != "":
		return fmt.Sprintf("%s: %s (group=%s)", e.Code, e.Message, e.GroupID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConstructionError returns true if err is or wraps a ConstructionError.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}

// HasCode returns true if err wraps a ConstructionError with the given code.
func HasCode(err error, code ConstructionErrorCode) bool {
	var ce *ConstructionError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// NewInvalidCombinatorError creates the error for an unknown combinator.
func NewInvalidCombinatorError(groupID, combinator string) *ConstructionError {
	return &ConstructionError{
		Code:    ErrCodeInvalidCombinator,
		Message: fmt.Sprintf("unable to build SQL query with combinator %q", combinator),
		GroupID: groupID,
	}
}

// NewMissingValueError creates the error for an operator given fewer values
// than it needs.
func NewMissingValueError(r Rule, want, got int) *ConstructionError {
	return &ConstructionError{
		Code:    ErrCodeMissingValue,
		Message: fmt.Sprintf("operator %s on %q needs %d values, got %d", r.Operator, r.Field, want, got),
		RuleID:  r.ID,
	}
}

// NewInvalidValueError creates the error for an uncoercible value.
func NewInvalidValueError(r Rule, value any, cause error) *ConstructionError {
	return &ConstructionError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("value %v of %q is not a valid %s: %v", value, r.Field, r.Type, cause),
		RuleID:  r.ID,
	}
}

// NewMalformedError creates the error for an unusable tree or descriptor.
func NewMalformedError(format string, args ...any) *ConstructionError {
	return &ConstructionError{
		Code:    ErrCodeMalformedDescriptor,
		Message: fmt.Sprintf(format, args...),
	}
}
