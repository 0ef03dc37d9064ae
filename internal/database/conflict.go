package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsUniqueViolation reports whether err came from a unique index rejecting an insert.
// gorm translates it to ErrDuplicatedKey when TranslateError is set; the message
// checks cover connections opened without translation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// IsForeignKeyViolation reports whether err came from a missing referenced row.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// RetryOnConflict runs fn and, if it loses a unique-index race, runs it once more.
// fn must look up the row before inserting so the second attempt takes the
// update path against the winner's row.
func RetryOnConflict(fn func() error) error {
	err := fn()
	if IsUniqueViolation(err) {
		return fn()
	}
	return err
}
