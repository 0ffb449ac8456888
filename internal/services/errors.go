package services

import (
	"errors"
	"fmt"
)

// Question bank errors
var (
	ErrQuestionBankNotFound = errors.New("question bank not found")
	ErrQuestionBankDeleted  = errors.New("question bank is deleted")
)

// Selection errors
var (
	ErrQuizNotFound      = errors.New("quiz not found")
	ErrQuizGroupNotFound = errors.New("quiz group not found")
	ErrSelectionChanged  = errors.New("sampled questions changed before they could be bound")
)

// Context and user errors
var (
	ErrContextNotFound = errors.New("context not found")
	ErrUserNotFound    = errors.New("user not found")
)

var ErrValidationFailed = errors.New("validation failed")

// validationError keeps both the sentinel and the field errors reachable
func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidationFailed, err)
}

// PermissionError is returned when the policy denies an action
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
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

func IsPermissionError(err error) bool {
	var permissionError *PermissionError
	return errors.As(err, &permissionError)
}
