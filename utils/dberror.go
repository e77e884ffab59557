package utils

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

const (
	DBErrTableNotFound = "table-not-found"
	DBErrField         = "field-error"
	DBErrConnection    = "connection-error"
	DBErrGeneric       = "database-error"
)

// ClassifyDBError buckets a persistence failure into the small set of
// categories that are safe to show to users.
func ClassifyDBError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, gorm.ErrInvalidField) || errors.Is(err, gorm.ErrInvalidData) {
		return DBErrField
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "doesn't exist"),
		strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation"):
		return DBErrTableNotFound
	case strings.Contains(msg, "no such column"),
		strings.Contains(msg, "unknown column"),
		strings.Contains(msg, "column") && strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "cannot be null"),
		strings.Contains(msg, "not null constraint"):
		return DBErrField
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "bad connection"),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "sql: database is closed"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "i/o timeout"):
		return DBErrConnection
	}
	return DBErrGeneric
}

// DBErrorMessage is the user-facing message for a persistence failure.
func DBErrorMessage(err error) string {
	switch ClassifyDBError(err) {
	case DBErrTableNotFound:
		return "Database table not found. Please contact the administrator."
	case DBErrField:
		return "Invalid data for one or more fields."
	case DBErrConnection:
		return "Could not reach the database. Please try again."
	default:
		return "A database error occurred."
	}
}
