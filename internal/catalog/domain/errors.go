package domain

import "errors"

var (
	ErrNotFound = errors.New("record not found")

	ErrUnknownProvider      = errors.New("unknown provider")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrUpstreamAuth         = errors.New("upstream rejected credentials")
	ErrUpstreamMalformed    = errors.New("upstream response malformed")
	ErrSyncLockUnavailable  = errors.New("sync lock backend unavailable")
	ErrStore                = errors.New("catalog store failure")
	ErrCatalogUnavailable   = errors.New("catalog temporarily unavailable")
	ErrInvalidServiceRecord = errors.New("invalid service record")
)

// ErrorKind is the machine readable failure class reported on a SyncResult
type ErrorKind string

const (
	ErrorKindNone                ErrorKind = ""
	ErrorKindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	ErrorKindUpstreamAuth        ErrorKind = "upstream_auth"
	ErrorKindUpstreamMalformed   ErrorKind = "upstream_malformed"
	ErrorKindLock                ErrorKind = "lock_unavailable"
	ErrorKindStore               ErrorKind = "store"
	ErrorKindUnknown             ErrorKind = "unknown"
)

// ErrorKindOf classifies err by the sentinel it wraps
func ErrorKindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrUpstreamAuth):
		return ErrorKindUpstreamAuth
	case errors.Is(err, ErrUpstreamMalformed):
		return ErrorKindUpstreamMalformed
	case errors.Is(err, ErrUpstreamUnavailable):
		return ErrorKindUpstreamUnavailable
	case errors.Is(err, ErrSyncLockUnavailable):
		return ErrorKindLock
	case errors.Is(err, ErrStore):
		return ErrorKindStore
	default:
		return ErrorKindUnknown
	}
}
