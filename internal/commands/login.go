package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/store"
)

// PasswordEnv is read when --password is not given.
const PasswordEnv = "TODOCTL_PASSWORD"

// Password length bounds enforced by the backend on registration.
const (
	minPasswordLen = 6
	maxPasswordLen = 100
)

func init() {
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	password string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in" }
func (c *LoginCmd) Usage() string     { return "todoctl login [--password <p>] <username>" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, st *store.Stores, args []string, out, errOut io.Writer) int {
	username, password, code := credentials(args, c.password, false, errOut)
	if code != exitcode.Success {
		return code
	}
	if err := st.Session.Login(ctx, username, password); err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", st.Session.State().User.Username)
	}
	return exitcode.Success
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	password string
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account and sign in" }
func (c *RegisterCmd) Usage() string     { return "todoctl register [--password <p>] <username>" }
func (c *RegisterCmd) NeedsAuth() bool   { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, cfg *config.Config, st *store.Stores, args []string, out, errOut io.Writer) int {
	username, password, code := credentials(args, c.password, true, errOut)
	if code != exitcode.Success {
		return code
	}
	if err := st.Session.Register(ctx, username, password); err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "registered and logged in as %s\n", st.Session.State().User.Username)
	}
	return exitcode.Success
}

// credentials validates the login/register form. checkLength applies the
// registration password bounds.
func credentials(args []string, password string, checkLength bool, errOut io.Writer) (string, string, int) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintln(errOut, "error: username required")
		return "", "", exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return "", "", exitcode.UserError
	}
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}
	if password == "" {
		fmt.Fprintf(errOut, "error: password required (--password or %s)\n", PasswordEnv)
		return "", "", exitcode.UserError
	}
	if n := utf8.RuneCountInString(password); checkLength && (n < minPasswordLen || n > maxPasswordLen) {
		fmt.Fprintf(errOut, "error: password must be between %d and %d characters\n", minPasswordLen, maxPasswordLen)
		return "", "", exitcode.UserError
	}
	return strings.TrimSpace(args[0]), password, exitcode.Success
}
