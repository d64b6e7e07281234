package domain

import "errors"

var (
	// ErrNotFound means the provider had no match. Permanent.
	ErrNotFound = errors.New("app not found")
	// ErrTransport covers network failures and non-success statuses. Retried.
	ErrTransport = errors.New("transport failure")
	// ErrParse means the response did not have the expected shape. Not retried.
	ErrParse = errors.New("malformed response")
	// ErrStorage means the entity store could not complete a write or read.
	ErrStorage = errors.New("storage unavailable")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransport)
}
