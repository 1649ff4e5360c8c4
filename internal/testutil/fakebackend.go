package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"todoctl/internal/service"
)

// Request is one HTTP request seen by FakeBackend.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	ContentType   string
}

// FakeBackend is an httptest server speaking the todo REST API.
// Task routes require a bearer JWT it issued itself.
type FakeBackend struct {
	Server *httptest.Server

	secret []byte

	mu       sync.Mutex
	users    map[string]string
	tasks    []service.Task
	nextID   int64
	requests []Request
	fail     map[string]int

	// TokenTTL is the lifetime of issued tokens. Negative issues already
	// expired tokens.
	TokenTTL time.Duration
}

// NewFakeBackend starts a backend that is shut down when t finishes.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	b := &FakeBackend{
		secret:   []byte("test-secret"),
		users:    make(map[string]string),
		nextID:   1,
		fail:     make(map[string]int),
		TokenTTL: time.Hour,
	}

	r := mux.NewRouter()
	r.Use(b.record)
	r.HandleFunc(service.PathLogin, b.handleLogin).Methods(http.MethodPost)
	r.HandleFunc(service.PathRegister, b.handleRegister).Methods(http.MethodPost)

	tasks := r.PathPrefix(service.PathTasks).Subrouter()
	tasks.Use(b.requireBearer)
	tasks.HandleFunc("", b.handleList).Methods(http.MethodGet)
	tasks.HandleFunc("", b.handleCreate).Methods(http.MethodPost)
	tasks.HandleFunc("/{id:[0-9]+}", b.handleGet).Methods(http.MethodGet)
	tasks.HandleFunc("/{id:[0-9]+}", b.handleUpdate).Methods(http.MethodPut)
	tasks.HandleFunc("/{id:[0-9]+}", b.handleDelete).Methods(http.MethodDelete)

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the base URL of the server.
func (b *FakeBackend) URL() string { return b.Server.URL }

// AddUser registers a user directly.
func (b *FakeBackend) AddUser(username, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = password
}

// AddTask seeds a task with the next id and returns it.
func (b *FakeBackend) AddTask(title, description string, status service.Status) service.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := service.Task{ID: b.nextID, Title: title, Description: description, Status: status}
	b.nextID++
	b.tasks = append(b.tasks, t)
	return t
}

// Tasks returns the server-side collection.
func (b *FakeBackend) Tasks() []service.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]service.Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Fail makes every request to method path answer code, until cleared with 0.
// path is the literal request path, e.g. "/tasks/7".
func (b *FakeBackend) Fail(method, path string, code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if code == 0 {
		delete(b.fail, method+" "+path)
		return
	}
	b.fail[method+" "+path] = code
}

// Requests returns every request seen so far.
func (b *FakeBackend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// LastRequest returns the most recent request.
func (b *FakeBackend) LastRequest() Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return Request{}
	}
	return b.requests[len(b.requests)-1]
}

// IssueToken signs a token for username with the configured TTL.
func (b *FakeBackend) IssueToken(username string) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(b.TokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (b *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			ContentType:   r.Header.Get("Content-Type"),
		})
		code, failing := b.fail[r.Method+" "+r.URL.Path]
		b.mu.Unlock()

		if failing {
			http.Error(w, http.StatusText(code), code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
			return b.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	pw, ok := b.users[creds.Username]
	b.mu.Unlock()
	if !ok || pw != creds.Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, service.AuthResponse{Username: creds.Username, Token: b.IssueToken(creds.Username)})
}

func (b *FakeBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Username == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	if _, taken := b.users[creds.Username]; taken {
		b.mu.Unlock()
		http.Error(w, "username taken", http.StatusConflict)
		return
	}
	b.users[creds.Username] = creds.Password
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, service.AuthResponse{Username: creds.Username, Token: b.IssueToken(creds.Username)})
}

func (b *FakeBackend) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.Tasks())
}

func (b *FakeBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var d service.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil || !d.Status.Valid() || strings.TrimSpace(d.Title) == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, b.AddTask(d.Title, d.Description, d.Status))
}

func (b *FakeBackend) handleGet(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	for _, t := range b.Tasks() {
		if t.ID == id {
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	http.NotFound(w, r)
}

func (b *FakeBackend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var t service.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil || !t.Status.Valid() {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	t.ID = id

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks[i] = t
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	http.NotFound(w, r)
}

func (b *FakeBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.NotFound(w, r)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
