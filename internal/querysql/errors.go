package querysql

import (
	"errors"
	"fmt"

	"github.com/roach88/dqb/internal/queryir"
)

// ErrorCode identifies a request-level compile failure.
type ErrorCode string

// Field selection codes.
const (
	ErrCodeUnknownField    ErrorCode = "E401"
	ErrCodeReadDisabled    ErrorCode = "E402"
	ErrCodeFieldForbidden  ErrorCode = "E403"
	ErrCodeNoMatches       ErrorCode = "E404"
	ErrCodeEmptySelection  ErrorCode = "E405"
	ErrCodeMalformedFields ErrorCode = "E406"
)

// Filter codes.
const (
	ErrCodeMalformedFilter ErrorCode = "E501"
	ErrCodeUnknownFilter   ErrorCode = "E502"
	ErrCodeFilterDisabled  ErrorCode = "E503"
	ErrCodeFilterForbidden ErrorCode = "E504"
	ErrCodeFilterLimit     ErrorCode = "E505"
)

// Order codes.
const (
	ErrCodeEmptyOrder     ErrorCode = "E601"
	ErrCodeUnknownOrder   ErrorCode = "E602"
	ErrCodeOrderDisabled  ErrorCode = "E603"
	ErrCodeOrderForbidden ErrorCode = "E604"
	ErrCodeOrderLimit     ErrorCode = "E605"
	ErrCodeMalformedOrder ErrorCode = "E606"
)

// Pagination codes.
const (
	ErrCodeItemsPerPage ErrorCode = "E701"
	ErrCodePageRange    ErrorCode = "E702"
)

// Named limits reported by FilterError.Limit.
const (
	LimitPredicates = "predicates"
	LimitRecursion  = "recursion"
)

// FieldError reports an invalid field selection.
type FieldError struct {
	Code ErrorCode

	// Field is the offending field key or shortener token.
	Field string

	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FilterError reports an invalid filter tree.
type FilterError struct {
	Code ErrorCode

	// Path is the breadcrumb of the offending node ("root/orGroup1/0").
	Path string

	Field string

	// Limit is LimitPredicates or LimitRecursion when Code is ErrCodeFilterLimit.
	Limit string

	Message string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// OrderError reports an invalid sort order.
type OrderError struct {
	Code    ErrorCode
	Field   string
	Message string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// PaginationError reports invalid paging parameters.
type PaginationError struct {
	Code    ErrorCode
	Message string
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsFilterLimit returns true if err is a FilterError for the named limit.
func IsFilterLimit(err error, limit string) bool {
	var fe *FilterError
	return errors.As(err, &fe) && fe.Code == ErrCodeFilterLimit && fe.Limit == limit
}

// IsClientError returns true if err was caused by the request rather than
// the schema: an invalid field selection, filter, order or page.
func IsClientError(err error) bool {
	var (
		fieldErr  *FieldError
		filterErr *FilterError
		orderErr  *OrderError
		pageErr   *PaginationError
	)
	return errors.As(err, &fieldErr) ||
		errors.As(err, &filterErr) ||
		errors.As(err, &orderErr) ||
		errors.As(err, &pageErr) ||
		queryir.IsParseError(err)
}

// FromParseError converts a *queryir.ParseError into the matching compile
// error so callers see one taxonomy. Other errors are returned unchanged.
func FromParseError(err error) error {
	var pe *queryir.ParseError
	if !errors.As(err, &pe) {
		return err
	}
	switch pe.Spec {
	case queryir.SpecFields:
		return &FieldError{Code: ErrCodeMalformedFields, Message: pe.Error()}
	case queryir.SpecFilter:
		return &FilterError{Code: ErrCodeMalformedFilter, Path: pe.Path, Message: pe.Error()}
	case queryir.SpecOrder:
		return &OrderError{Code: ErrCodeMalformedOrder, Message: pe.Error()}
	default:
		return err
	}
}

// CodeOf returns the code of a request-level compile error.
func CodeOf(err error) (ErrorCode, bool) {
	var (
		fieldErr  *FieldError
		filterErr *FilterError
		orderErr  *OrderError
		pageErr   *PaginationError
	)
	switch {
	case errors.As(err, &fieldErr):
		return fieldErr.Code, true
	case errors.As(err, &filterErr):
		return filterErr.Code, true
	case errors.As(err, &orderErr):
		return orderErr.Code, true
	case errors.As(err, &pageErr):
		return pageErr.Code, true
	}
	return "", false
}
