package db

import (
	"errors"
	"strings"
)

// IsUniqueViolation reports whether the provided error (or anything it wraps)
// references a unique constraint violation. When constraintName is provided,
// the helper looks for the constraint text instead.
func IsUniqueViolation(err error, constraintName string) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		msg := err.Error()
		if constraintName != "" {
			if strings.Contains(msg, constraintName) {
				return true
			}
			continue
		}
		if strings.Contains(msg, "duplicate key value") ||
			strings.Contains(msg, "UNIQUE constraint failed") {
			return true
		}
	}
	return false
}
