package domain

import "errors"

// ErrUnauthorized is returned by providers when the API responds with HTTP 401.
// Callers can check for it using errors.Is to point the user at their token.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound is returned when a pipeline, run or log does not exist.
var ErrNotFound = errors.New("not found")
