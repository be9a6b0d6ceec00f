package thread

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested thread or message does not exist
// or holds no visible data.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyFinalized is returned when finalize is attempted on a message
// that has already left the pending state.
var ErrAlreadyFinalized = errors.New("message already finalized")

// StorageError wraps any persistence-layer failure. Callers above the repo
// never see raw driver errors.
type StorageError struct {
	Message string
	Details string
}

func (e *StorageError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Details)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return &StorageError{
		Message: fmt.Sprintf("database error in %s", op),
		Details: err.Error(),
	}
}
