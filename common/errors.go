package common

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type TextDBErrorCode int

const (
	// ConfigurationError indicates an operator or pipeline that cannot run as configured
	// (empty dictionary, missing input operator, unsupported attribute type, ...).
	// The caller must fix the configuration and rebuild the operator.
	ConfigurationError TextDBErrorCode = iota
	// EvaluationError indicates a failure discovered while computing a tuple, such as a
	// malformed field access. It aborts the current pipeline run.
	EvaluationError
	// DuplicateObjectError indicates an attempt to create a table, index or attribute
	// that already exists.
	DuplicateObjectError
	// NoSuchObjectError indicates a request for a table, index or attribute that does
	// not exist.
	NoSuchObjectError
)

func (ec TextDBErrorCode) String() string {
	switch ec {
	case ConfigurationError:
		return "ConfigurationError"
	case EvaluationError:
		return "EvaluationError"
	case DuplicateObjectError:
		return "DuplicateObjectError"
	case NoSuchObjectError:
		return "NoSuchObjectError"
	}
	return "unknown"
}

// TextDBError is the custom error type for the text engine.
// It carries a TextDBErrorCode so callers can tell configuration problems (fix and rebuild)
// apart from evaluation failures (abort the run) without parsing messages.
type TextDBError struct {
	Code      TextDBErrorCode
	ErrString string
}

func (e TextDBError) Error() string {
	return fmt.Sprintf("err: %s; msg: %s", e.Code.String(), e.ErrString)
}

// NewError builds a TextDBError with the given code and attaches a stack trace.
func NewError(code TextDBErrorCode, format string, args ...any) error {
	return errors.WithStackDepth(TextDBError{Code: code, ErrString: fmt.Sprintf(format, args...)}, 1)
}

func NewConfigurationError(format string, args ...any) error {
	return errors.WithStackDepth(TextDBError{Code: ConfigurationError, ErrString: fmt.Sprintf(format, args...)}, 1)
}

func NewEvaluationError(format string, args ...any) error {
	return errors.WithStackDepth(TextDBError{Code: EvaluationError, ErrString: fmt.Sprintf(format, args...)}, 1)
}

// ErrorCodeOf extracts the TextDBErrorCode from anywhere in err's chain.
func ErrorCodeOf(err error) (TextDBErrorCode, bool) {
	var tErr TextDBError
	if errors.As(err, &tErr) {
		return tErr.Code, true
	}
	return 0, false
}

// IsErrorCode reports whether err carries a TextDBError with the given code.
func IsErrorCode(err error, code TextDBErrorCode) bool {
	c, ok := ErrorCodeOf(err)
	return ok && c == code
}
