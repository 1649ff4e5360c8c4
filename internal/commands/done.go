package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/output"
	"todoctl/internal/service"
	"todoctl/internal/store"
)

func init() {
	Register(&StatusCmd{})
	Register(&ToggleCmd{})
	Register(&DoneCmd{})
}

// StatusCmd implements the status command.
type StatusCmd struct{}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return nil }
func (c *StatusCmd) Synopsis() string  { return "Set a task's status" }
func (c *StatusCmd) Usage() string     { return "todoctl status <id> <todo|progress|done>" }
func (c *StatusCmd) NeedsAuth() bool   { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, st *store.Stores, args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(errOut, "error: task reference and status required")
		return exitcode.UserError
	}
	id, err := ParseTaskRef(args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	status, err := service.ParseStatus(args[1])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if code := snapshotError(st, errOut); code != exitcode.Success {
		return code
	}
	if _, found := st.Tasks.Task(id); !found {
		fmt.Fprintf(errOut, "error: task not found: %d\n", id)
		return exitcode.UserError
	}

	task, err := st.Tasks.SetStatus(ctx, id, status)
	if err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		output.FormatTask(out, task)
	}
	return exitcode.Success
}

// ToggleCmd implements the toggle command.
type ToggleCmd struct{}

func (c *ToggleCmd) Name() string      { return "toggle" }
func (c *ToggleCmd) Aliases() []string { return nil }
func (c *ToggleCmd) Synopsis() string  { return "Advance tasks to their next status" }
func (c *ToggleCmd) Usage() string     { return "todoctl toggle <id...>" }
func (c *ToggleCmd) NeedsAuth() bool   { return true }

func (c *ToggleCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ToggleCmd) Run(ctx context.Context, cfg *config.Config, st *store.Stores, args []string, out, errOut io.Writer) int {
	return runEach(ctx, cfg, st, args, out, errOut, st.Tasks.ToggleStatus)
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark tasks done" }
func (c *DoneCmd) Usage() string     { return "todoctl done <id...>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, st *store.Stores, args []string, out, errOut io.Writer) int {
	return runEach(ctx, cfg, st, args, out, errOut, func(ctx context.Context, id int64) (service.Task, error) {
		return st.Tasks.SetStatus(ctx, id, service.StatusDone)
	})
}

// runEach applies op to every referenced task concurrently and reports the
// outcomes in argument order. Unknown ids are rejected before anything is sent.
func runEach(ctx context.Context, cfg *config.Config, st *store.Stores, args []string, out, errOut io.Writer, op func(context.Context, int64) (service.Task, error)) int {
	ids, code := resolveIDs(st, args, errOut)
	if code != exitcode.Success {
		return code
	}

	tasks := make([]service.Task, len(ids))
	errs := make([]error, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			tasks[i], errs[i] = op(ctx, id)
			return errs[i]
		})
	}
	_ = g.Wait()

	return report(cfg, ids, errs, out, errOut, func(i int) {
		output.FormatTask(out, tasks[i])
	})
}

// resolveIDs parses task references and checks each is in the collection.
func resolveIDs(st *store.Stores, args []string, errOut io.Writer) ([]int64, int) {
	ids, err := ParseTaskRefs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, exitcode.UserError
	}
	if code := snapshotError(st, errOut); code != exitcode.Success {
		return nil, code
	}
	for _, id := range ids {
		if _, found := st.Tasks.Task(id); !found {
			fmt.Fprintf(errOut, "error: task not found: %d\n", id)
			return nil, exitcode.UserError
		}
	}
	return ids, exitcode.Success
}

// report prints per-id outcomes and returns the exit code of the first failure.
func report(cfg *config.Config, ids []int64, errs []error, out, errOut io.Writer, success func(i int)) int {
	code := exitcode.Success
	for i, err := range errs {
		if err != nil {
			fmt.Fprintf(errOut, "error: #%d: %v\n", ids[i], err)
			if code == exitcode.Success {
				code = exitcode.For(err)
			}
			continue
		}
		if !cfg.Quiet {
			success(i)
		}
	}
	return code
}
