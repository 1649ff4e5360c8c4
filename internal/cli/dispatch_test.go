package cli_test

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"todoctl/internal/cli"
	"todoctl/internal/commands"
	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/service"
	"todoctl/internal/testutil"
)

// harness runs the dispatcher against a FakeBackend with the production
// stores factory. Every invocation shares the default config dir under a
// temporary XDG_CONFIG_HOME.
type harness struct {
	backend    *testutil.FakeBackend
	dispatcher *cli.Dispatcher
	configDir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	t.Setenv("TODOCTL_API_URL", backend.URL())
	t.Setenv("TODOCTL_TIMEOUT", "2s")
	t.Setenv(commands.PasswordEnv, "")
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	return &harness{
		backend:    backend,
		dispatcher: cli.NewDispatcher(commands.DefaultRegistry, cli.NewStoresFactory(&bytes.Buffer{})),
		configDir:  filepath.Join(xdg, config.AppName),
	}
}

func (h *harness) run(args ...string) (stdout, stderr string, code int) {
	var outBuf, errBuf bytes.Buffer
	code = h.dispatcher.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.backend.AddUser("alice", "abc")
	if _, stderr, code := h.run("login", "-p", "abc", "alice"); code != exitcode.Success {
		t.Fatalf("login failed (%d): %q", code, stderr)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	h := newHarness(t)

	_, stderr, code := h.run("unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	h := newHarness(t)

	_, stderr, code := h.run("--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	h := newHarness(t)

	stdout, stderr, code := h.run("help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	h := newHarness(t)

	stdout, stderr, code := h.run("version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "todoctl 0.1.0\n" {
		t.Errorf("expected 'todoctl 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	h := newHarness(t)

	_, stderr, code := h.run("help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	h := newHarness(t)

	_, stderr, code := h.run("add", "--status")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -status\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_NotLoggedIn(t *testing.T) {
	h := newHarness(t)

	_, stderr, code := h.run("list")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	expected := "error: not logged in (run: todoctl login)\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
	if n := len(h.backend.Requests()); n != 0 {
		t.Errorf("expected no backend requests, got %d", n)
	}
}

func TestDispatcher_EndToEnd(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	if _, err := os.Stat(filepath.Join(h.configDir, config.SessionFile)); err != nil {
		t.Fatalf("expected saved session: %v", err)
	}

	stdout, stderr, code := h.run()
	if code != exitcode.Success || stdout != "no tasks found\n" {
		t.Fatalf("empty list: code %d, stdout %q, stderr %q", code, stdout, stderr)
	}

	stdout, stderr, code = h.run("add", "-d", "2 litres", "Buy milk")
	if code != exitcode.Success {
		t.Fatalf("add failed (%d): %q", code, stderr)
	}
	if stdout != "   #1  [To Do]        Buy milk\n" {
		t.Errorf("unexpected add output %q", stdout)
	}
	last := h.backend.LastRequest()
	if !strings.HasPrefix(last.Authorization, "Bearer ") || last.RequestID == "" {
		t.Errorf("expected bearer and request id, got %+v", last)
	}

	if _, stderr, code = h.run("done", "#1"); code != exitcode.Success {
		t.Fatalf("done failed (%d): %q", code, stderr)
	}
	stdout, _, _ = h.run("ls")
	if stdout != "   #1  [Done]         Buy milk\n" {
		t.Errorf("unexpected list output %q", stdout)
	}

	stdout, _, _ = h.run("rm", "1")
	if stdout != "deleted #1\n" {
		t.Errorf("unexpected rm output %q", stdout)
	}
	if n := len(h.backend.Tasks()); n != 0 {
		t.Errorf("expected backend empty, got %d tasks", n)
	}

	if _, _, code = h.run("logout"); code != exitcode.Success {
		t.Fatalf("logout failed: %d", code)
	}
	if _, _, code = h.run("list"); code != exitcode.AuthError {
		t.Errorf("expected auth error after logout, got %d", code)
	}
}

func TestDispatcher_FetchFailureReported(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.Fail(http.MethodGet, service.PathTasks, http.StatusInternalServerError)

	_, stderr, code := h.run("list")

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: Failed to fetch tasks\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_ExpiredSessionIsDropped(t *testing.T) {
	h := newHarness(t)
	h.backend.TokenTTL = -time.Minute
	h.login(t)

	_, stderr, code := h.run("list")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: not logged in (run: todoctl login)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(h.configDir, config.SessionFile)); !os.IsNotExist(err) {
		t.Errorf("expected expired session removed, got %v", err)
	}
}

func TestDispatcher_StandaloneCommandsSkipStores(t *testing.T) {
	h := newHarness(t)
	t.Setenv("TODOCTL_LOG_LEVEL", "loud")

	for _, name := range []string{"help", "version"} {
		if _, stderr, code := h.run(name); code != exitcode.Success || stderr != "" {
			t.Errorf("%s: expected success, got code %d stderr %q", name, code, stderr)
		}
	}
	if _, err := os.Stat(h.configDir); !os.IsNotExist(err) {
		t.Errorf("expected config dir not created, got %v", err)
	}

	// Commands that build stores still reject the bad level.
	_, stderr, code := h.run("login", "-p", "abc", "alice")
	if code != exitcode.UserError || !strings.Contains(stderr, `invalid log level "loud"`) {
		t.Errorf("expected log level error, got code %d stderr %q", code, stderr)
	}
}
