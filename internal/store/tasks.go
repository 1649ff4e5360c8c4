package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"todoctl/internal/service"
)

// TaskState is the collection snapshot plus the last error.
// Error is empty when the last operation succeeded.
type TaskState struct {
	Tasks []service.Task
	Error string
}

// TaskStore owns the in-memory task collection.
//
// Every operation issues exactly one backend call and reconciles the
// collection only from a successful response; a failure leaves the
// collection untouched and records the operation's message. Operations may
// run concurrently. Each response is applied to the collection as it stands
// when the response arrives, so concurrent mutations of the same id end in
// whichever response lands last.
type TaskStore struct {
	client service.Client
	log    logrus.FieldLogger

	activate sync.Once

	mu    sync.RWMutex
	tasks []service.Task
	err   string
}

// NewTaskStore returns an empty store bound to client.
func NewTaskStore(client service.Client, log logrus.FieldLogger) *TaskStore {
	return &TaskStore{client: client, log: log}
}

// State returns a copy of the collection and the last error.
func (s *TaskStore) State() TaskState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]service.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return TaskState{Tasks: tasks, Error: s.err}
}

// Task returns the task with id from the current snapshot.
func (s *TaskStore) Task(id int64) (service.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return service.Task{}, false
}

// Activate performs the initial fetch. Only the first call does anything;
// later calls return nil.
func (s *TaskStore) Activate(ctx context.Context) error {
	var err error
	s.activate.Do(func() {
		err = s.FetchTasks(ctx)
	})
	return err
}

// FetchTasks replaces the whole collection with GET /tasks.
func (s *TaskStore) FetchTasks(ctx context.Context) error {
	var tasks []service.Task
	if err := s.client.Get(ctx, service.PathTasks, &tasks); err != nil {
		return s.fail(ErrFetchTasks, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = dedupe(tasks)
	s.err = ""
	s.log.WithField("count", len(s.tasks)).Debug("tasks fetched")
	return nil
}

// AddTask creates draft with POST /tasks and appends the task the backend
// returns. Nothing is inserted before the backend confirms.
func (s *TaskStore) AddTask(ctx context.Context, draft service.Draft) (service.Task, error) {
	if !draft.Status.Valid() {
		return service.Task{}, s.fail(ErrAddTask, fmt.Errorf("%w: %q", ErrInvalidStatus, draft.Status))
	}

	var created service.Task
	if err := s.client.Post(ctx, service.PathTasks, draft, &created); err != nil {
		return service.Task{}, s.fail(ErrAddTask, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(created.ID); i >= 0 {
		s.tasks[i] = created
	} else {
		s.tasks = append(s.tasks, created)
	}
	s.err = ""
	s.log.WithField("id", created.ID).Debug("task added")
	return created, nil
}

// UpdateTask writes patch over the task with id through PUT /tasks/{id} and
// replaces that element with the response. The full record is sent: the
// locally known task with patch applied.
func (s *TaskStore) UpdateTask(ctx context.Context, id int64, patch service.Patch) (service.Task, error) {
	current, _ := s.Task(id)
	current.ID = id
	record := patch.Apply(current)
	if !record.Status.Valid() {
		return service.Task{}, s.fail(ErrUpdateTask, fmt.Errorf("%w: %q", ErrInvalidStatus, record.Status))
	}

	var updated service.Task
	if err := s.client.Put(ctx, service.TaskPath(id), record, &updated); err != nil {
		return service.Task{}, s.fail(ErrUpdateTask, err)
	}
	// The id in the path identifies the element; the response cannot move it.
	updated.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.tasks[i] = updated
	}
	s.err = ""
	s.log.WithField("id", id).Debug("task updated")
	return updated, nil
}

// SetStatus is UpdateTask changing only the status.
func (s *TaskStore) SetStatus(ctx context.Context, id int64, status service.Status) (service.Task, error) {
	return s.UpdateTask(ctx, id, service.Patch{Status: &status})
}

// ToggleStatus moves the task with id to the next status in the cycle, based
// on the current snapshot.
func (s *TaskStore) ToggleStatus(ctx context.Context, id int64) (service.Task, error) {
	current, ok := s.Task(id)
	if !ok {
		return service.Task{}, s.fail(ErrUpdateTask, fmt.Errorf("task %d is not in the collection", id))
	}
	return s.SetStatus(ctx, id, current.Status.Next())
}

// DeleteTask removes the task with DELETE /tasks/{id} and drops it from the
// collection.
func (s *TaskStore) DeleteTask(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, service.TaskPath(id)); err != nil {
		return s.fail(ErrDeleteTask, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	}
	s.err = ""
	s.log.WithField("id", id).Debug("task deleted")
	return nil
}

func (s *TaskStore) fail(kind, cause error) error {
	s.mu.Lock()
	s.err = kind.Error()
	s.mu.Unlock()
	s.log.WithError(cause).Warn(kind.Error())
	return opError(kind, cause)
}

// indexOf must be called with mu held.
func (s *TaskStore) indexOf(id int64) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// dedupe keeps the last occurrence of each id, in first-seen order.
func dedupe(tasks []service.Task) []service.Task {
	out := make([]service.Task, 0, len(tasks))
	pos := make(map[int64]int, len(tasks))
	for _, t := range tasks {
		if i, ok := pos[t.ID]; ok {
			out[i] = t
			continue
		}
		pos[t.ID] = len(out)
		out = append(out, t)
	}
	return out
}
