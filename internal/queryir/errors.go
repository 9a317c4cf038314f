package queryir

import (
	"errors"
	"fmt"
)

// Spec names used in ParseError.
const (
	SpecFields = "fields"
	SpecFilter = "filter"
	SpecOrder  = "order"
)

// ParseError reports request data that does not follow the request grammar.
type ParseError struct {
	// Spec is SpecFields, SpecFilter or SpecOrder.
	Spec string

	// Path is the breadcrumb of the offending node, "" when not applicable.
	Path string

	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid %s: %s", e.Spec, e.Message)
	}
	return fmt.Sprintf("invalid %s '%s': %s", e.Spec, e.Path, e.Message)
}

// IsParseError returns true if err wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func filterError(path, format string, args ...any) *ParseError {
	return &ParseError{Spec: SpecFilter, Path: path, Message: fmt.Sprintf(format, args...)}
}

func orderError(path, format string, args ...any) *ParseError {
	return &ParseError{Spec: SpecOrder, Path: path, Message: fmt.Sprintf(format, args...)}
}
