package schema

import (
	"errors"
	"fmt"
)

// BuildErrorCode categorizes malformed declarations.
type BuildErrorCode string

const (
	// ErrCodeNoPrimaryTable indicates a field was built before any table was registered.
	ErrCodeNoPrimaryTable BuildErrorCode = "E201"

	// ErrCodeInvalidName indicates an empty key or custom name.
	ErrCodeInvalidName BuildErrorCode = "E202"

	// ErrCodeMissingJoin indicates a non-primary, non-extra table without a join.
	ErrCodeMissingJoin BuildErrorCode = "E203"

	// ErrCodeInvalidJoin indicates an empty join condition or unsupported join type.
	ErrCodeInvalidJoin BuildErrorCode = "E204"

	// ErrCodeMissingDependency indicates a non-primary table without dependency fields.
	ErrCodeMissingDependency BuildErrorCode = "E205"

	// ErrCodeUnknownDependency indicates a dependency field that was never declared.
	ErrCodeUnknownDependency BuildErrorCode = "E206"

	// ErrCodeUnknownOwner indicates a field whose owning table was never declared.
	ErrCodeUnknownOwner BuildErrorCode = "E207"
)

// BuildError reports a malformed table or field declaration.
// These are schema authoring bugs and should fail at warm-up, not per request.
type BuildError struct {
	Code BuildErrorCode

	// Kind is "table" or "field".
	Kind string

	// Key is the declaration key that failed to build.
	Key string

	Message string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s %q: %s", e.Code, e.Kind, e.Key, e.Message)
}

func tableError(code BuildErrorCode, key, format string, args ...any) *BuildError {
	return &BuildError{Code: code, Kind: "table", Key: key, Message: fmt.Sprintf(format, args...)}
}

func fieldError(code BuildErrorCode, key, format string, args ...any) *BuildError {
	return &BuildError{Code: code, Kind: "field", Key: key, Message: fmt.Sprintf(format, args...)}
}

// ResolutionErrorCode categorizes lookup failures against a built schema.
type ResolutionErrorCode string

const (
	// ErrCodeUnknownTable indicates a table key that is not registered.
	ErrCodeUnknownTable ResolutionErrorCode = "E301"

	// ErrCodeUnknownField indicates a field key that is not registered.
	ErrCodeUnknownField ResolutionErrorCode = "E302"

	// ErrCodeExtraJoin indicates an extra table reached join resolution.
	ErrCodeExtraJoin ResolutionErrorCode = "E303"
)

// ResolutionError reports an unknown table or field, or an extra table used
// where only physically joinable tables are allowed.
type ResolutionError struct {
	Code    ResolutionErrorCode
	Key     string
	Message string
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsBuildError returns true if err wraps a *BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

// IsNotFound returns true if err reports an unknown table or field key.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownTable || re.Code == ErrCodeUnknownField
	}
	return false
}

// IsResolutionError returns true if err wraps a *ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

func unknownTable(key string) *ResolutionError {
	return &ResolutionError{
		Code:    ErrCodeUnknownTable,
		Key:     key,
		Message: fmt.Sprintf("table %q not found in the schema", key),
	}
}

func unknownField(key string) *ResolutionError {
	return &ResolutionError{
		Code:    ErrCodeUnknownField,
		Key:     key,
		Message: fmt.Sprintf("field %q not found in the schema", key),
	}
}
