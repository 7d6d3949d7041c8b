package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

type ErrorCode int

const (
	MemoryLimitExceeded ErrorCode = iota + 1000
	InvalidConfiguration
)

func NewMemoryLimitExceededError(msgFormat string, args ...interface{}) CrateError {
	return NewCrateErrorf(MemoryLimitExceeded, msgFormat, args...)
}

func NewInvalidConfigurationError(msg string) CrateError {
	return NewCrateErrorf(InvalidConfiguration, "invalid configuration: %s", msg)
}

func NewCrateErrorf(errorCode ErrorCode, msgFormat string, args ...interface{}) CrateError {
	msg := fmt.Sprintf(msgFormat, args...)
	return CrateError{Code: errorCode, Msg: msg}
}

func NewCrateError(errorCode ErrorCode, msg string) CrateError {
	return CrateError{Code: errorCode, Msg: msg}
}

type CrateError struct {
	Code ErrorCode
	Msg  string
}

func (c CrateError) Error() string {
	return c.Msg
}

// IsMemoryLimitExceeded reports whether err is the fatal circuit-breaking
// condition, as opposed to an ordinary "stop accepting rows" signal.
func IsMemoryLimitExceeded(err error) bool {
	var ce CrateError
	if As(err, &ce) {
		return ce.Code == MemoryLimitExceeded
	}
	return false
}

func New(msg string) error {
	return pkgerrors.New(msg)
}

func Errorf(msgFormat string, args ...interface{}) error {
	return pkgerrors.Errorf(msgFormat, args...)
}

func Wrap(err error, msg string) error {
	return pkgerrors.Wrap(err, msg)
}

func As(err error, target interface{}) bool {
	return pkgerrors.As(err, target)
}
