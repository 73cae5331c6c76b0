package executil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Cmd describes a foreground subprocess. Env, when set, is the complete
// child environment, nothing from the parent process leaks in unless the
// caller put it there. a nil Env inherits the parent environment.
type Cmd struct {
	Argv   []string
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the command and waits for it to finish. a non-zero exit is
// not an error here, the exit code is returned and the caller decides. the
// error is non-nil when the process could not be started or the context
// expired while it ran.
func Run(ctx context.Context, cmd Cmd) (int, error) {
	if len(cmd.Argv) == 0 {
		return -1, errors.New("empty command")
	}

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}
	if cmd.Stderr != nil {
		c.Stderr = cmd.Stderr
	}

	err := c.Run()
	if ctx.Err() != nil {
		return -1, fmt.Errorf("%s: %w", cmd.Argv[0], ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("%s: %w", cmd.Argv[0], err)
	}
	return 0, nil
}

// ScrubEnv returns a copy of environ with the named variables removed.
func ScrubEnv(environ []string, names []string) []string {
	out := make([]string, 0, len(environ))
	for _, entry := range environ {
		scrubbed := false
		for _, name := range names {
			if strings.HasPrefix(entry, name+"=") {
				scrubbed = true
				break
			}
		}
		if !scrubbed {
			out = append(out, entry)
		}
	}
	return out
}

// SetEnv adds or replaces a variable in an environment list.
func SetEnv(environ []string, key, value string) []string {
	prefix := key + "="
	out := make([]string, 0, len(environ)+1)
	for _, entry := range environ {
		if !strings.HasPrefix(entry, prefix) {
			out = append(out, entry)
		}
	}
	return append(out, prefix+value)
}
