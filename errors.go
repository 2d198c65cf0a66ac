package astrocloud

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jbcurtin/astro-cloud/fits"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when an incoming request fails signature verification
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnauthenticated is returned when a request cannot be signed because credentials are absent
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrCorruptData is returned when a fetched block where a header was expected is not header text
	ErrCorruptData = errors.New("corrupt data")
	// ErrNotImplemented is returned for features that are recognised but unsupported
	ErrNotImplemented = fits.ErrNotImplemented
	// ErrInvalidHeader is returned when a header block cannot be parsed
	ErrInvalidHeader = fits.ErrInvalidHeader
)

// StatusError is returned when the object service answers a range request with
// a status other than 206 or 416.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return "unexpected HTTP status " + strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode) + " from " + e.URL
}

// Is reports whether target is a *StatusError with the same StatusCode.
func (e *StatusError) Is(target error) bool {
	var t *StatusError
	if !errors.As(target, &t) {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// Sentinel status errors for use with errors.Is.
var (
	ErrStatusNotFound  = &StatusError{StatusCode: http.StatusNotFound}
	ErrStatusForbidden = &StatusError{StatusCode: http.StatusForbidden}
)
