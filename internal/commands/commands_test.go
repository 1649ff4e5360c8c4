package commands_test

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net/http"
	"strings"
	"testing"

	"todoctl/internal/commands"
	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/logging"
	"todoctl/internal/service"
	"todoctl/internal/store"
	"todoctl/internal/testutil"
)

// env wires a FakeAPI behind real stores with a throwaway config dir.
type env struct {
	api *testutil.FakeAPI
	cfg *config.Config
	st  *store.Stores
}

func newEnv(t *testing.T) *env {
	t.Helper()
	api := testutil.NewFakeAPI()
	cfg := &config.Config{Dir: t.TempDir()}
	return &env{api: api, cfg: cfg, st: store.New(api, cfg, logging.Discard())}
}

// activate loads the backend collection into the task store, as the
// dispatcher does before running a command that needs a session.
func (e *env) activate(t *testing.T) {
	t.Helper()
	if err := e.st.Tasks.Activate(context.Background()); err != nil {
		t.Fatalf("activate: %v", err)
	}
}

// run parses flagArgs with the command's flags and runs it.
func (e *env) run(t *testing.T, cmd commands.Command, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(context.Background(), e.cfg, e.st, fs.Args(), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func checkResult(t *testing.T, gotCode, wantCode int, gotErr, wantErr string) {
	t.Helper()
	if gotCode != wantCode {
		t.Errorf("expected exit code %d, got %d", wantCode, gotCode)
	}
	if gotErr != wantErr {
		t.Errorf("expected stderr %q, got %q", wantErr, gotErr)
	}
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	e := newEnv(t)

	stdout, stderr, code := e.run(t, &commands.VersionCmd{})

	checkResult(t, code, exitcode.Success, stderr, "")
	if stdout != "todoctl 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	e := newEnv(t)

	stdout, stderr, code := e.run(t, &commands.HelpCmd{})

	checkResult(t, code, exitcode.Success, stderr, "")
	for _, want := range []string{"Usage:", "login", "rm (delete)", "list (ls)", "TODOCTL_API_URL"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

// Tests for list command
func TestListCommand(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.api.AddTask("Walk dog", service.StatusDone)
	e.activate(t)

	stdout, stderr, code := e.run(t, &commands.ListCmd{})

	checkResult(t, code, exitcode.Success, stderr, "")
	expected := "   #1  [To Do]        Buy milk\n   #2  [Done]         Walk dog\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_StatusFilter(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.api.AddTask("Walk dog", service.StatusDone)
	e.activate(t)

	stdout, stderr, code := e.run(t, &commands.ListCmd{}, "--status", "done")

	checkResult(t, code, exitcode.Success, stderr, "")
	if stdout != "   #2  [Done]         Walk dog\n" {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestListCommand_Empty(t *testing.T) {
	e := newEnv(t)
	e.activate(t)

	stdout, stderr, code := e.run(t, &commands.ListCmd{})
	checkResult(t, code, exitcode.Success, stderr, "")
	if stdout != "no tasks found\n" {
		t.Errorf("expected 'no tasks found', got %q", stdout)
	}

	e.cfg.Quiet = true
	stdout, _, _ = e.run(t, &commands.ListCmd{})
	if stdout != "" {
		t.Errorf("expected no output when quiet, got %q", stdout)
	}
}

func TestListCommand_InvalidStatus(t *testing.T) {
	e := newEnv(t)
	e.activate(t)

	_, stderr, code := e.run(t, &commands.ListCmd{}, "-s", "later")
	checkResult(t, code, exitcode.UserError, stderr, "error: invalid status: later\n")
}

func TestListCommand_UnexpectedArgument(t *testing.T) {
	e := newEnv(t)
	e.activate(t)

	_, stderr, code := e.run(t, &commands.ListCmd{}, "extra")
	checkResult(t, code, exitcode.UserError, stderr, "error: unexpected argument: extra\n")
}

func TestListCommand_FetchFailure(t *testing.T) {
	e := newEnv(t)
	e.api.ListErr = testutil.HTTPError(http.StatusInternalServerError)
	_ = e.st.Tasks.Activate(context.Background())

	stdout, stderr, code := e.run(t, &commands.ListCmd{})

	checkResult(t, code, exitcode.BackendError, stderr, "error: Failed to fetch tasks\n")
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
}

// Tests for show command
func TestShowCommand(t *testing.T) {
	e := newEnv(t)
	e.activate(t)
	if _, err := e.st.Tasks.AddTask(context.Background(), service.Draft{
		Title:       "Write report",
		Description: "Quarterly numbers\nand charts",
		Status:      service.StatusInProgress,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	stdout, stderr, code := e.run(t, &commands.ShowCmd{}, "#1")

	checkResult(t, code, exitcode.Success, stderr, "")
	expected := "   #1  [In Progress]  Write report\n       Quarterly numbers\n       and charts\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestShowCommand_NotFound(t *testing.T) {
	e := newEnv(t)
	e.activate(t)

	_, stderr, code := e.run(t, &commands.ShowCmd{}, "9")
	checkResult(t, code, exitcode.UserError, stderr, "error: task not found: 9\n")
}

// Tests for add command
func TestAddCommand(t *testing.T) {
	e := newEnv(t)
	e.activate(t)

	stdout, stderr, code := e.run(t, &commands.AddCmd{}, "Buy", "milk")

	checkResult(t, code, exitcode.Success, stderr, "")
	if stdout != "   #1  [To Do]        Buy milk\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	tasks := e.api.Tasks()
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" || tasks[0].Status != service.StatusToDo {
		t.Errorf("unexpected backend tasks %+v", tasks)
	}
	if got := e.st.Tasks.State().Tasks; len(got) != 1 || got[0].ID != 1 {
		t.Errorf("expected task in store, got %+v", got)
	}
}

func TestAddCommand_WithFlags(t *testing.T) {
	e := newEnv(t)
	e.activate(t)

	stdout, stderr, code := e.run(t, &commands.AddCmd{}, "-d", "Quarterly", "--status", "progress", "Write report")

	checkResult(t, code, exitcode.Success, stderr, "")
	if stdout != "   #1  [In Progress]  Write report\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	if got := e.api.Tasks()[0].Description; got != "Quarterly" {
		t.Errorf("expected description sent, got %q", got)
	}
}

func TestAddCommand_Validation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no title", nil, "error: title required\n"},
		{"blank title", []string{"  "}, "error: title required\n"},
		{"long description", []string{"-d", strings.Repeat("x", 501), "t"}, "error: description must not exceed 500 characters\n"},
		{"bad status", []string{"-s", "blocked", "t"}, "error: invalid status: blocked\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.activate(t)

			_, stderr, code := e.run(t, &commands.AddCmd{}, tt.args...)

			checkResult(t, code, exitcode.UserError, stderr, tt.wantErr)
			if n := e.api.CallCount(http.MethodPost, service.PathTasks); n != 0 {
				t.Errorf("expected no create call, got %d", n)
			}
		})
	}
}

func TestAddCommand_BackendFailure(t *testing.T) {
	e := newEnv(t)
	e.activate(t)
	e.api.CreateErr = testutil.HTTPError(http.StatusInternalServerError)

	stdout, stderr, code := e.run(t, &commands.AddCmd{}, "Buy milk")

	checkResult(t, code, exitcode.BackendError, stderr, "error: Failed to add task\n")
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if e.st.Tasks.State().Error != "Failed to add task" {
		t.Errorf("expected error recorded in state, got %q", e.st.Tasks.State().Error)
	}
}

// Tests for edit command
func TestEditCommand(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.activate(t)

	stdout, stderr, code := e.run(t, &commands.EditCmd{}, "--title", "Buy oat milk", "-d", "2 litres", "1")

	checkResult(t, code, exitcode.Success, stderr, "")
	if stdout != "   #1  [To Do]        Buy oat milk\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	want := service.Task{ID: 1, Title: "Buy oat milk", Description: "2 litres", Status: service.StatusToDo}
	if got := e.api.Tasks()[0]; got != want {
		t.Errorf("expected backend task %+v, got %+v", want, got)
	}
}

func TestEditCommand_NothingToChange(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.activate(t)

	_, stderr, code := e.run(t, &commands.EditCmd{}, "1")
	checkResult(t, code, exitcode.UserError, stderr, "error: nothing to change\n")
}

func TestEditCommand_NotFound(t *testing.T) {
	e := newEnv(t)
	e.activate(t)

	_, stderr, code := e.run(t, &commands.EditCmd{}, "-t", "x", "4")
	checkResult(t, code, exitcode.UserError, stderr, "error: task not found: 4\n")
	if n := e.api.CallCount(http.MethodPut, service.TaskPath(4)); n != 0 {
		t.Errorf("expected no update call, got %d", n)
	}
}

func TestEditCommand_FlagsDoNotLeakBetweenRuns(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.activate(t)
	cmd := &commands.EditCmd{}

	if _, stderr, code := e.run(t, cmd, "-s", "done", "1"); code != exitcode.Success {
		t.Fatalf("first run failed: %q", stderr)
	}
	_, stderr, code := e.run(t, cmd, "1")
	checkResult(t, code, exitcode.UserError, stderr, "error: nothing to change\n")
}

// Tests for status command
func TestStatusCommand(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.activate(t)

	stdout, stderr, code := e.run(t, &commands.StatusCmd{}, "1", "progress")

	checkResult(t, code, exitcode.Success, stderr, "")
	if stdout != "   #1  [In Progress]  Buy milk\n" {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestStatusCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"missing args", []string{"1"}, exitcode.UserError, "error: task reference and status required\n"},
		{"bad ref", []string{"x1", "done"}, exitcode.UserError, "error: invalid task reference: x1\n"},
		{"bad status", []string{"1", "Finished"}, exitcode.UserError, "error: invalid status: Finished\n"},
		{"unknown task", []string{"5", "done"}, exitcode.UserError, "error: task not found: 5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.api.AddTask("Buy milk", service.StatusToDo)
			e.activate(t)

			_, stderr, code := e.run(t, &commands.StatusCmd{}, tt.args...)
			checkResult(t, code, tt.wantCode, stderr, tt.wantErr)
		})
	}
}

func TestStatusCommand_BackendFailure(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.activate(t)
	e.api.UpdateErr = testutil.HTTPError(http.StatusInternalServerError)

	_, stderr, code := e.run(t, &commands.StatusCmd{}, "1", "done")

	checkResult(t, code, exitcode.BackendError, stderr, "error: Failed to update task\n")
	if got := e.st.Tasks.State().Tasks[0].Status; got != service.StatusToDo {
		t.Errorf("expected local status unchanged, got %q", got)
	}
}

// Tests for toggle command
func TestToggleCommand(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.api.AddTask("Walk dog", service.StatusInProgress)
	e.activate(t)

	stdout, stderr, code := e.run(t, &commands.ToggleCmd{}, "1", "#2")

	checkResult(t, code, exitcode.Success, stderr, "")
	expected := "   #1  [In Progress]  Buy milk\n   #2  [Done]         Walk dog\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestToggleCommand_UnknownIDSendsNothing(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.activate(t)

	_, stderr, code := e.run(t, &commands.ToggleCmd{}, "1", "3")

	checkResult(t, code, exitcode.UserError, stderr, "error: task not found: 3\n")
	if n := e.api.CallCount(http.MethodPut, service.TaskPath(1)); n != 0 {
		t.Errorf("expected no update call, got %d", n)
	}
}

// Tests for done command
func TestDoneCommand(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.api.AddTask("Walk dog", service.StatusDone)
	e.activate(t)

	e.cfg.Quiet = true
	stdout, stderr, code := e.run(t, &commands.DoneCmd{}, "1", "2")

	checkResult(t, code, exitcode.Success, stderr, "")
	if stdout != "" {
		t.Errorf("expected no output when quiet, got %q", stdout)
	}
	for _, task := range e.api.Tasks() {
		if task.Status != service.StatusDone {
			t.Errorf("expected task %d done, got %q", task.ID, task.Status)
		}
	}
}

func TestDoneCommand_NoRefs(t *testing.T) {
	e := newEnv(t)
	e.activate(t)

	_, stderr, code := e.run(t, &commands.DoneCmd{})
	checkResult(t, code, exitcode.UserError, stderr, "error: task reference required\n")
}

// Tests for rm command
func TestRmCommand(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.api.AddTask("Walk dog", service.StatusDone)
	e.activate(t)

	stdout, stderr, code := e.run(t, &commands.RmCmd{}, "2")

	checkResult(t, code, exitcode.Success, stderr, "")
	if stdout != "deleted #2\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	if got := e.st.Tasks.State().Tasks; len(got) != 1 || got[0].ID != 1 {
		t.Errorf("expected only #1 left, got %+v", got)
	}
}

func TestRmCommand_PartialFailure(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.api.AddTask("Walk dog", service.StatusDone)
	e.activate(t)

	// #2 disappears on the backend after the snapshot was taken.
	if err := e.api.Delete(context.Background(), service.TaskPath(2)); err != nil {
		t.Fatalf("seed delete: %v", err)
	}

	stdout, stderr, code := e.run(t, &commands.RmCmd{}, "1", "2")

	checkResult(t, code, exitcode.BackendError, stderr, "error: #2: Failed to delete task\n")
	if stdout != "deleted #1\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	got := e.st.Tasks.State().Tasks
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("expected #2 kept locally after failed delete, got %+v", got)
	}
}

func TestRmCommand_DuplicateRef(t *testing.T) {
	e := newEnv(t)
	e.api.AddTask("Buy milk", service.StatusToDo)
	e.activate(t)

	_, stderr, code := e.run(t, &commands.RmCmd{}, "1", "#1")
	checkResult(t, code, exitcode.UserError, stderr, "error: duplicate task reference: #1\n")
}

func TestMutatingCommands_FetchFailure(t *testing.T) {
	tests := []struct {
		name string
		cmd  commands.Command
		args []string
	}{
		{"rm", &commands.RmCmd{}, []string{"1"}},
		{"done", &commands.DoneCmd{}, []string{"1"}},
		{"toggle", &commands.ToggleCmd{}, []string{"#1"}},
		{"status", &commands.StatusCmd{}, []string{"1", "done"}},
		{"edit", &commands.EditCmd{}, []string{"--title", "x", "1"}},
		{"show", &commands.ShowCmd{}, []string{"1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.api.AddTask("Buy milk", service.StatusToDo)
			e.api.ListErr = testutil.HTTPError(http.StatusInternalServerError)
			_ = e.st.Tasks.Activate(context.Background())

			stdout, stderr, code := e.run(t, tt.cmd, tt.args...)

			checkResult(t, code, exitcode.BackendError, stderr, "error: Failed to fetch tasks\n")
			if stdout != "" {
				t.Errorf("expected no stdout, got %q", stdout)
			}
			for _, c := range e.api.Calls() {
				if c.Method != http.MethodGet {
					t.Errorf("expected no mutating call, got %s %s", c.Method, c.Path)
				}
			}
		})
	}
}
