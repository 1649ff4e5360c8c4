package service

import (
	"context"
	"strconv"
)

// Backend paths.
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathTasks    = "/tasks"
)

// TaskPath returns the path of a single task.
func TaskPath(id int64) string {
	return PathTasks + "/" + strconv.FormatInt(id, 10)
}

// Client is the HTTP collaborator the stores talk to.
// Every call rejects (returns a non-nil error) when the response is not 2xx.
// Stores never import the HTTP layer directly.
type Client interface {
	// Get issues GET path and decodes the response body into out.
	Get(ctx context.Context, path string, out any) error

	// Post issues POST path with body encoded as JSON and decodes into out.
	Post(ctx context.Context, path string, body, out any) error

	// Put issues PUT path with body encoded as JSON and decodes into out.
	Put(ctx context.Context, path string, body, out any) error

	// Delete issues DELETE path. The response body is ignored.
	Delete(ctx context.Context, path string) error

	// SetAuthToken installs token as the bearer credential on calls issued
	// afterwards. An empty token removes the credential.
	SetAuthToken(token string)
}

// SessionKeeper persists the session between process runs.
type SessionKeeper interface {
	SaveSession(s SavedSession) error
	LoadSession() (SavedSession, error)
	RemoveSession() error
}
