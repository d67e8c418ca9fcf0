package entity

import "errors"

var (
	ErrDataNotFound     = errors.New("data not found")
	ErrConflictingData  = errors.New("conflicting data")
	ErrInvalidData      = errors.New("invalid data")
	ErrMissingData      = errors.New("missing data")
	ErrNoRecipients     = errors.New("no recipients resolved")
	ErrTransport        = errors.New("transport failure")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrRunInProgress    = errors.New("run already in progress")
	ErrUnknownProvider  = errors.New("unknown transport provider")
)

// ErrorKind names the failure class of a per-item error for run summaries.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingData), errors.Is(err, ErrDataNotFound):
		return "missing_data"
	case errors.Is(err, ErrNoRecipients):
		return "no_recipients"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}
