package repositories

import (
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err (possibly wrapped) means the row does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
