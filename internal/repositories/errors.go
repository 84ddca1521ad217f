package repositories

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleState means a conditional update matched no row because the
	// record is no longer in the expected state.
	ErrStaleState = errors.New("record state changed")
	// ErrCorruptRecord means a stored row violates a model invariant.
	ErrCorruptRecord = errors.New("corrupt record")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey)
}

func IsStaleStateError(err error) bool {
	return errors.Is(err, ErrStaleState)
}
