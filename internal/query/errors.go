package query

import (
	"errors"
	"fmt"

	"github.com/roach88/dqb/internal/querysql"
	"github.com/roach88/dqb/internal/schema"
)

// UsageErrorCode categorizes misuse of a Builder.
type UsageErrorCode string

const (
	// ErrCodeNotPrepared indicates SQL was requested before Prepare succeeded.
	ErrCodeNotPrepared UsageErrorCode = "E801"

	// ErrCodeMissingSource indicates an extra table has no registered ExtraSource.
	ErrCodeMissingSource UsageErrorCode = "E802"

	// ErrCodeExtraCycle indicates extra tables whose correlation keys depend on each other.
	ErrCodeExtraCycle UsageErrorCode = "E803"
)

// UsageError reports a Builder used out of order or without the
// collaborators it needs.
type UsageError struct {
	Code UsageErrorCode

	// Table is the extra table involved, if any.
	Table string

	Message string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s: %s (table=%s)", e.Code, e.Message, e.Table)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUsageError returns true if err wraps a *UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// IsNotPrepared returns true if err reports a Builder used before Prepare.
func IsNotPrepared(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue) && ue.Code == ErrCodeNotPrepared
}

var errNotPrepared = &UsageError{
	Code:    ErrCodeNotPrepared,
	Message: "the request must be prepared before building SQL",
}

// ErrorCode returns the code of any error in the package family: request
// compile errors, schema errors and usage errors. Returns "" for others.
func ErrorCode(err error) string {
	if code, ok := querysql.CodeOf(err); ok {
		return string(code)
	}
	var (
		ue *UsageError
		be *schema.BuildError
		re *schema.ResolutionError
	)
	switch {
	case errors.As(err, &ue):
		return string(ue.Code)
	case errors.As(err, &be):
		return string(be.Code)
	case errors.As(err, &re):
		return string(re.Code)
	}
	return ""
}
