package schemaload

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error codes for configuration loading.
const (
	ErrCodeReadFailed        = "E010" // File could not be read
	ErrCodeUnsupportedFormat = "E011" // Unknown file extension
	ErrCodeParseFailed       = "E012" // Syntax error
	ErrCodeInvalidConfig     = "E013" // Wrong shape (e.g. tables is not an object)
)

// LoadError reports a configuration file that could not be loaded.
type LoadError struct {
	Code    string
	Path    string // Location inside the document, e.g. tables.users
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// IsLoadError reports whether err is a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
