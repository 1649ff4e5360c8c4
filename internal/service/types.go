// Package service defines the domain types and the transport contract shared by
// the stores and the HTTP client.
package service

import (
	"fmt"
	"strings"
)

// Status is the workflow state of a task.
type Status string

// The only status values the backend accepts.
const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// Valid reports whether s is one of the three accepted literals.
func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Next returns the status a toggle moves to: To Do -> In Progress -> Done -> To Do.
// Unknown values restart the cycle at To Do.
func (s Status) Next() Status {
	switch s {
	case StatusToDo:
		return StatusInProgress
	case StatusInProgress:
		return StatusDone
	default:
		return StatusToDo
	}
}

// ParseStatus accepts the exact literals as well as the short forms typed on
// the command line (todo, progress, in-progress, done), case-insensitive.
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	switch norm {
	case "to do", "todo":
		return StatusToDo, nil
	case "in progress", "inprogress", "progress":
		return StatusInProgress, nil
	case "done":
		return StatusDone, nil
	}
	return "", fmt.Errorf("invalid status: %s", s)
}

// Task is a single task as the backend returns it.
// ID is assigned by the backend and never changes.
type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// Draft is the body of a create request.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// Patch holds the fields to change on an existing task. Nil fields keep their
// current value.
type Patch struct {
	Title       *string
	Description *string
	Status      *Status
}

// Apply returns t with the non-nil fields of p written over it.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}

// Credentials is the body of login and register requests.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is what login and register return on success.
type AuthResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Session is the identity shown to the view layer. The bearer token is kept
// by the session store and never exposed here.
type Session struct {
	Username        string
	IsAuthenticated bool
}

// Anonymous is the session of a client that has not logged in.
var Anonymous = Session{}

// SavedSession is what gets persisted between process runs.
type SavedSession struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}
