package services

import (
	"errors"
	"fmt"
)

var ErrUnknownFile = errors.New("file is not in the uploaded list")

// ValidationError is a user-correctable input problem: limits exceeded, no
// category selected, unsupported media.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// FileError tags a failure with the file it came from.
type FileError struct {
	FileName string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.FileName, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// BatchResult aggregates a fan-out. Succeeded and Failed keep input order.
type BatchResult[T any] struct {
	Succeeded []T
	Failed    []*FileError
}

// Err returns the first failure, or nil when every item succeeded.
func (b *BatchResult[T]) Err() error {
	if len(b.Failed) == 0 {
		return nil
	}
	return b.Failed[0]
}

func (b *BatchResult[T]) PartialSuccess() bool {
	return len(b.Succeeded) > 0 && len(b.Failed) > 0
}
