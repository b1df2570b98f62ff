package db

import (
	"strings"

	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
)

const (
	pgUniqueViolation   = "23505"
	pgLockNotAvailable  = "55P03"
	pgSerializationFail = "40001"
	pgDeadlockDetected  = "40P01"
)

// IsUniqueViolation reports whether err is a unique constraint violation from the
// postgres or sqlite drivers. When names are given one of them must match: postgres
// reports the constraint name, sqlite reports "table.column".
func IsUniqueViolation(err error, names ...string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.PGErrorOf(err); ok {
		return pg.Code == pgUniqueViolation && matchesAny(names, func(name string) bool {
			return pg.Constraint == name
		})
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return matchesAny(names, func(name string) bool {
		return strings.Contains(msg, name)
	})
}

func matchesAny(names []string, match func(string) bool) bool {
	if len(names) == 0 {
		return true
	}
	for _, name := range names {
		if name == "" || match(name) {
			return true
		}
	}
	return false
}

// IsContention reports whether err came from a row lock that could not be taken in
// time or a transaction postgres aborted to break a conflict. Such failures are safe
// to retry with the same idempotency key.
func IsContention(err error) bool {
	pg, ok := pkgerrors.PGErrorOf(err)
	if !ok {
		return false
	}
	switch pg.Code {
	case pgLockNotAvailable, pgSerializationFail, pgDeadlockDetected:
		return true
	}
	return false
}
