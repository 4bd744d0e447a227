package entity

import (
	"errors"
	"fmt"
)

// Error names as reported by the storage platform (DOMException names).
const (
	ErrNameNotFound            = "NotFoundError"
	ErrNameTypeMismatch        = "TypeMismatchError"
	ErrNameInvalidModification = "InvalidModificationError"
	ErrNameNotAllowed          = "NotAllowedError"
	ErrNameSecurity            = "SecurityError"
	ErrNameGeneric             = "Error"
)

var (
	ErrTabNotFound = errors.New("tab not found")
	ErrSlotEmpty   = errors.New("bridge slot is empty")
)

// StorageError is a failure raised by the OPFS platform.
type StorageError struct {
	Name    string
	Message string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func NewStorageError(name, message string) *StorageError {
	return &StorageError{Name: name, Message: message}
}

// ErrorName reports the platform name of err, or "Error" for anything else.
func ErrorName(err error) string {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Name
	}
	return ErrNameGeneric
}

// ErrorMessage strips the name from a StorageError.
func ErrorMessage(err error) string {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

// Describe formats err as "<Name>: <message>".
func Describe(err error) string {
	return fmt.Sprintf("%s: %s", ErrorName(err), ErrorMessage(err))
}

func IsNotFound(err error) bool {
	return ErrorName(err) == ErrNameNotFound
}

// ErrDownloadCancelled is returned when the save-as step is declined.
var ErrDownloadCancelled = errors.New("download cancelled")
