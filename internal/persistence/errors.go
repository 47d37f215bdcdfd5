package persistence

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrDuplicate is returned when an article's URL or fingerprint is already stored
	ErrDuplicate = errors.New("persistence: duplicate article")
	// ErrStoryNotFound is returned when appending to a story that does not exist
	ErrStoryNotFound = errors.New("persistence: story not found")
	// ErrNotFound is returned by lookups that match no row
	ErrNotFound = errors.New("persistence: not found")
)

// isUniqueViolation reports whether err is a unique-constraint failure from either driver
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
