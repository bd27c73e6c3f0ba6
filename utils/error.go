package utils

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Handlers translate these to HTTP statuses;
// everything else is treated as an internal error.
var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorConflict       = errors.New("conflict")
	ErrorBadRequest     = errors.New("bad request")
)

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrorRecordNotFound)...)
}

func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrorConflict)...)
}

func BadRequestf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrorBadRequest)...)
}

// IsDomainError reports whether err belongs to the domain taxonomy and must be
// propagated unchanged instead of wrapped as an internal failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrorRecordNotFound) ||
		errors.Is(err, ErrorConflict) ||
		errors.Is(err, ErrorBadRequest)
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
