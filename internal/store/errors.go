package store

import "errors"

// Each failed operation records exactly one of these messages. The messages
// are shown to the user as-is.
var (
	ErrLoginFailed        = errors.New("Login failed: Invalid credentials")
	ErrRegistrationFailed = errors.New("Registration failed: Username may be taken")
	ErrFetchTasks         = errors.New("Failed to fetch tasks")
	ErrAddTask            = errors.New("Failed to add task")
	ErrUpdateTask         = errors.New("Failed to update task")
	ErrDeleteTask         = errors.New("Failed to delete task")
)

// ErrInvalidStatus is the cause recorded when a create or update carries a
// status other than the three accepted literals.
var ErrInvalidStatus = errors.New("invalid status")

// OpError is returned by a failed store operation. Its message is the fixed
// per-operation text; errors.Is matches both the sentinel and the cause.
type OpError struct {
	Kind  error
	Cause error
}

func (e *OpError) Error() string { return e.Kind.Error() }

func (e *OpError) Unwrap() []error { return []error{e.Kind, e.Cause} }

func opError(kind, cause error) *OpError {
	return &OpError{Kind: kind, Cause: cause}
}
