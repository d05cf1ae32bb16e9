package errors

import "errors"

// Remote storage errors.
var (
	ErrInvalidToken   = errors.New("invalid or expired access token")
	ErrRemoteNotFound = errors.New("remote resource not found")
	ErrAPIRequest     = errors.New("API request failed")
	ErrAPIResponse    = errors.New("unexpected API response")
)
