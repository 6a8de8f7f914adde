package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("storage error")
)

// StorageError reports a persistence-layer fault for a single repository operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
