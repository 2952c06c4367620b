package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrRecordNotFound         = errors.New("record not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrStorage                = errors.New("storage error")
)

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func invalidTransition(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidStateTransition, fmt.Sprintf(format, args...))
}

// storageError keeps both ErrStorage and the cause matchable with errors.Is.
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// IsRejection reports whether err is a caller mistake rather than a store failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrInvalidStateTransition)
}
