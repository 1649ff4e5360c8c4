// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/store"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a signed-in session.
	// For those commands the dispatcher resumes the saved session and
	// activates the task store before Run.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, settings).
	// st is nil for Standalone commands.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, st *store.Stores, args []string, out, errOut io.Writer) int
}

// Standalone marks commands that never touch the backend. The dispatcher
// runs them without building stores, so they need no logger or config dir.
type Standalone interface {
	Standalone()
}

// fail prints a store error the way every command reports it and returns the
// matching exit code.
func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.For(err)
}

// snapshotError reports a failed initial fetch. Lookups against an empty
// snapshot would otherwise claim the task does not exist.
func snapshotError(st *store.Stores, errOut io.Writer) int {
	if msg := st.Tasks.State().Error; msg != "" {
		fmt.Fprintf(errOut, "error: %s\n", msg)
		return exitcode.BackendError
	}
	return exitcode.Success
}

// ok prints the acknowledgement unless quiet.
func ok(cfg *config.Config, out io.Writer) {
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
}
