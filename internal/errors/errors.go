// Package errors defines the client-side error taxonomy.
// Callers match these with errors.Is; transport details stay in the client package.
package errors

import "errors"

var (
	// ErrInvalidCredentials means the server rejected a login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrValidation means input failed field constraints, either locally or
	// server-side (registration, password reset).
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized means the server answered 401. The session is torn down
	// centrally; callers only need to stop what they were doing.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNetwork means the request never reached the server or no response came back.
	ErrNetwork = errors.New("network failure")

	// ErrNotFound means the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrNotAuthenticated means an operation needs a session and there is none.
	ErrNotAuthenticated = errors.New("not authenticated")
)
