// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"errors"

	"todoctl/internal/store"
)

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, invalid input, unknown task).
	UserError = 1

	// AuthError indicates a session problem (not logged in, bad credentials).
	AuthError = 2

	// BackendError indicates a failed backend call.
	BackendError = 3
)

// For maps a store error to an exit code.
func For(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, store.ErrInvalidStatus):
		return UserError
	case errors.Is(err, store.ErrLoginFailed), errors.Is(err, store.ErrRegistrationFailed):
		return AuthError
	default:
		return BackendError
	}
}
