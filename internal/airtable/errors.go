package airtable

import (
	"errors"
	"net/http"
)

var (
	ErrCredentialsRequired     = errors.New("Personal Access Token and Base ID are required")
	ErrInvalidToken            = errors.New("Invalid Personal Access Token")
	ErrInsufficientPermissions = errors.New("Insufficient permissions. Make sure your PAT has access to this base")
	ErrBaseNotFound            = errors.New("Base not found. Please check your Base ID")
	ErrFetchFailed             = errors.New("Failed to fetch schema")
)

// errorForStatus maps a non-2xx metadata response to the message shown to the user.
func errorForStatus(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrInvalidToken
	case http.StatusForbidden:
		return ErrInsufficientPermissions
	case http.StatusNotFound:
		return ErrBaseNotFound
	default:
		return ErrFetchFailed
	}
}

// StatusCode gives the HTTP status a handler should answer with for err.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrCredentialsRequired):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInsufficientPermissions):
		return http.StatusForbidden
	case errors.Is(err, ErrBaseNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
