package blogengine

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when an id, email or token does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when registering an email that is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateTitle is returned when a post title is already in use.
	ErrDuplicateTitle = errors.New("post title already exists")
	// ErrForbidden is returned by the admin guard.
	ErrForbidden = errors.New("forbidden")
)

func isConstraint(err error, code int) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == code
}

// The message checks cover connections that report only the primary
// SQLITE_CONSTRAINT code.
func isUniqueViolation(err error) bool {
	return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE) ||
		isConstraint(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) ||
		(err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed"))
}

func isForeignKeyViolation(err error) bool {
	return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY) ||
		(err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed"))
}
