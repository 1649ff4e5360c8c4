package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/output"
	"todoctl/internal/service"
	"todoctl/internal/store"
)

// maxDescriptionLen is the backend's limit on descriptions.
const maxDescriptionLen = 500

func init() {
	Register(&AddCmd{})
	Register(&EditCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
	status      string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "todoctl add [--description <text>] [--status <status>] <title...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
	fs.StringVar(&c.status, "status", string(service.StatusToDo), "")
	fs.StringVar(&c.status, "s", string(service.StatusToDo), "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, st *store.Stores, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}
	if code := checkDescription(c.description, errOut); code != exitcode.Success {
		return code
	}

	status := service.StatusToDo
	if c.status != "" {
		s, err := service.ParseStatus(c.status)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		status = s
	}

	task, err := st.Tasks.AddTask(ctx, service.Draft{Title: title, Description: c.description, Status: status})
	if err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		output.FormatTask(out, task)
	}
	return exitcode.Success
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       optionalString
	description optionalString
	status      optionalString
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task's title, description or status" }
func (c *EditCmd) Usage() string {
	return "todoctl edit [--title <t>] [--description <d>] [--status <s>] <id>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.description, c.status = optionalString{}, optionalString{}, optionalString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
	fs.Var(&c.status, "status", "")
	fs.Var(&c.status, "s", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, st *store.Stores, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: task reference required")
		return exitcode.UserError
	}
	id, err := ParseTaskRef(args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	var patch service.Patch
	if c.title.set {
		if strings.TrimSpace(c.title.value) == "" {
			fmt.Fprintln(errOut, "error: title required")
			return exitcode.UserError
		}
		patch.Title = &c.title.value
	}
	if c.description.set {
		if code := checkDescription(c.description.value, errOut); code != exitcode.Success {
			return code
		}
		patch.Description = &c.description.value
	}
	if c.status.set {
		s, err := service.ParseStatus(c.status.value)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		patch.Status = &s
	}
	if patch == (service.Patch{}) {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	if code := snapshotError(st, errOut); code != exitcode.Success {
		return code
	}
	if _, found := st.Tasks.Task(id); !found {
		fmt.Fprintf(errOut, "error: task not found: %d\n", id)
		return exitcode.UserError
	}
	task, err := st.Tasks.UpdateTask(ctx, id, patch)
	if err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		output.FormatTask(out, task)
	}
	return exitcode.Success
}

func checkDescription(desc string, errOut io.Writer) int {
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		fmt.Fprintf(errOut, "error: description must not exceed %d characters\n", maxDescriptionLen)
		return exitcode.UserError
	}
	return exitcode.Success
}

// optionalString is a flag value that remembers whether it was given.
type optionalString struct {
	value string
	set   bool
}

func (o *optionalString) String() string { return o.value }

func (o *optionalString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}
