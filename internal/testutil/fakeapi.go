// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"

	"todoctl/internal/service"
)

// Call is one request seen by FakeAPI, with the credential it carried.
type Call struct {
	Method string
	Path   string
	Token  string
	Body   any
}

// FakeAPI is an in-memory implementation of service.Client for testing.
// It behaves like the todo backend: users, token issue, task CRUD.
type FakeAPI struct {
	mu     sync.Mutex
	tasks  []service.Task
	nextID int64
	users  map[string]string
	token  string
	calls  []Call
	gates  map[string]*Gate

	// Tokens overrides the token issued to a username. Default "token-<username>".
	Tokens map[string]string

	// RequireAuth makes task routes answer 401 without a credential.
	RequireAuth bool

	// Error injection for testing
	LoginErr    error
	RegisterErr error
	ListErr     error
	CreateErr   error
	UpdateErr   error
	DeleteErr   error
}

// NewFakeAPI creates an empty FakeAPI. Task ids start at 1.
func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		nextID: 1,
		users:  make(map[string]string),
		Tokens: make(map[string]string),
		gates:  make(map[string]*Gate),
	}
}

// HTTPError builds the error a non-2xx response would produce.
func HTTPError(code int) error {
	return &googleapi.Error{Code: code, Message: http.StatusText(code)}
}

// AddUser registers a user directly.
func (f *FakeAPI) AddUser(username, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = password
}

// AddTask seeds a task with the next id and returns it.
func (f *FakeAPI) AddTask(title string, status service.Status) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{ID: f.nextID, Title: title, Status: status}
	f.nextID++
	f.tasks = append(f.tasks, t)
	return t
}

// Tasks returns the backend-side collection.
func (f *FakeAPI) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Calls returns every call seen so far.
func (f *FakeAPI) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many calls matched method and path.
func (f *FakeAPI) CallCount(method, path string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// Token returns the credential currently installed.
func (f *FakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// Gate holds back the response of one call until released.
type Gate struct {
	entered chan struct{}
	release chan struct{}
}

// Entered is closed once the held call has been processed by the backend and
// is waiting to return.
func (g *Gate) Entered() <-chan struct{} { return g.entered }

// Release lets the held call return.
func (g *Gate) Release() { close(g.release) }

// Hold arranges for the next call to method path to be processed immediately
// but to return only after Release.
func (f *FakeAPI) Hold(method, path string) *Gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &Gate{entered: make(chan struct{}), release: make(chan struct{})}
	f.gates[method+" "+path] = g
	return g
}

// SetAuthToken implements service.Client.
func (f *FakeAPI) SetAuthToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// Get implements service.Client.
func (f *FakeAPI) Get(ctx context.Context, path string, out any) error {
	return f.call(ctx, http.MethodGet, path, nil, out)
}

// Post implements service.Client.
func (f *FakeAPI) Post(ctx context.Context, path string, body, out any) error {
	return f.call(ctx, http.MethodPost, path, body, out)
}

// Put implements service.Client.
func (f *FakeAPI) Put(ctx context.Context, path string, body, out any) error {
	return f.call(ctx, http.MethodPut, path, body, out)
}

// Delete implements service.Client.
func (f *FakeAPI) Delete(ctx context.Context, path string) error {
	return f.call(ctx, http.MethodDelete, path, nil, nil)
}

func (f *FakeAPI) call(ctx context.Context, method, path string, body, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Path: path, Token: f.token, Body: body})
	result, err := f.route(method, path, body)
	gate := f.gates[method+" "+path]
	delete(f.gates, method+" "+path)
	f.mu.Unlock()

	if gate != nil {
		close(gate.entered)
		select {
		case <-gate.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err != nil {
		return err
	}
	if out == nil || result == nil {
		return nil
	}
	return convert(result, out)
}

// route must be called with mu held.
func (f *FakeAPI) route(method, path string, body any) (any, error) {
	switch {
	case method == http.MethodPost && path == service.PathLogin:
		return f.login(body)
	case method == http.MethodPost && path == service.PathRegister:
		return f.register(body)
	case strings.HasPrefix(path, service.PathTasks):
		if f.RequireAuth && f.token == "" {
			return nil, HTTPError(http.StatusUnauthorized)
		}
		return f.routeTasks(method, path, body)
	}
	return nil, HTTPError(http.StatusNotFound)
}

func (f *FakeAPI) login(body any) (any, error) {
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	var creds service.Credentials
	if err := convert(body, &creds); err != nil {
		return nil, HTTPError(http.StatusBadRequest)
	}
	if pw, ok := f.users[creds.Username]; !ok || pw != creds.Password {
		return nil, HTTPError(http.StatusUnauthorized)
	}
	return service.AuthResponse{Username: creds.Username, Token: f.tokenFor(creds.Username)}, nil
}

func (f *FakeAPI) register(body any) (any, error) {
	if f.RegisterErr != nil {
		return nil, f.RegisterErr
	}
	var creds service.Credentials
	if err := convert(body, &creds); err != nil {
		return nil, HTTPError(http.StatusBadRequest)
	}
	if _, ok := f.users[creds.Username]; ok {
		return nil, HTTPError(http.StatusConflict)
	}
	f.users[creds.Username] = creds.Password
	return service.AuthResponse{Username: creds.Username, Token: f.tokenFor(creds.Username)}, nil
}

func (f *FakeAPI) tokenFor(username string) string {
	if tok, ok := f.Tokens[username]; ok {
		return tok
	}
	return "token-" + username
}

func (f *FakeAPI) routeTasks(method, path string, body any) (any, error) {
	if path == service.PathTasks {
		switch method {
		case http.MethodGet:
			if f.ListErr != nil {
				return nil, f.ListErr
			}
			out := make([]service.Task, len(f.tasks))
			copy(out, f.tasks)
			return out, nil
		case http.MethodPost:
			if f.CreateErr != nil {
				return nil, f.CreateErr
			}
			var d service.Draft
			if err := convert(body, &d); err != nil {
				return nil, HTTPError(http.StatusBadRequest)
			}
			t := service.Task{ID: f.nextID, Title: d.Title, Description: d.Description, Status: d.Status}
			f.nextID++
			f.tasks = append(f.tasks, t)
			return t, nil
		}
		return nil, HTTPError(http.StatusMethodNotAllowed)
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(path, service.PathTasks+"/"), 10, 64)
	if err != nil {
		return nil, HTTPError(http.StatusBadRequest)
	}
	idx := -1
	for i, t := range f.tasks {
		if t.ID == id {
			idx = i
		}
	}

	switch method {
	case http.MethodGet:
		if idx < 0 {
			return nil, HTTPError(http.StatusNotFound)
		}
		return f.tasks[idx], nil
	case http.MethodPut:
		if f.UpdateErr != nil {
			return nil, f.UpdateErr
		}
		if idx < 0 {
			return nil, HTTPError(http.StatusNotFound)
		}
		var t service.Task
		if err := convert(body, &t); err != nil {
			return nil, HTTPError(http.StatusBadRequest)
		}
		t.ID = id
		f.tasks[idx] = t
		return t, nil
	case http.MethodDelete:
		if f.DeleteErr != nil {
			return nil, f.DeleteErr
		}
		if idx < 0 {
			return nil, HTTPError(http.StatusNotFound)
		}
		f.tasks = append(f.tasks[:idx], f.tasks[idx+1:]...)
		return nil, nil
	}
	return nil, HTTPError(http.StatusMethodNotAllowed)
}

// convert copies src into dst through JSON, the way a real round trip would.
func convert(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("fake api: encode: %w", err)
	}
	return json.Unmarshal(data, dst)
}
