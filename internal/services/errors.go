package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// Not found
var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrExamNotFound     = errors.New("exam not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
)

// State and conflicts
var (
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrConflict                = errors.New("conflict")
	ErrAttemptAlreadyActive    = fmt.Errorf("%w: an attempt for this exam is already in progress", ErrConflict)
	ErrTenantNameTaken         = fmt.Errorf("%w: institute name already registered", ErrConflict)
	ErrUsernameTaken           = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrUserContactTaken        = fmt.Errorf("%w: email or phone number already registered", ErrConflict)
	ErrSubjectCodeTaken        = fmt.Errorf("%w: subject code already exists", ErrConflict)
)

// Caller problems
var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrForbidden          = errors.New("forbidden")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// PermissionError reports a role or ownership violation
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

// StoreError wraps an I/O failure of a backing store. The caller may retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// storeError classifies a repository error that has no domain meaning.
// Corrupt rows are internal faults, not transient ones.
func storeError(op string, err error) error {
	if errors.Is(err, repositories.ErrCorruptRecord) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &StoreError{Op: op, Err: err}
}

// notFoundOr maps a repository miss to notFound and anything else to a store error
func notFoundOr(err error, notFound error, op string) error {
	if repositories.IsNotFoundError(err) {
		return notFound
	}
	return storeError(op, err)
}
