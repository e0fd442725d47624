package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"whispersub/internal/services"
)

// Command describes one subprocess invocation.
type Command struct {
	Name string
	Args []string
	// Env entries are appended to the sanitized parent environment.
	Env []string
	Dir string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes a command and returns its combined stdout and stderr.
type Runner func(ctx context.Context, cmd Command) ([]byte, error)

// CommandError reports a subprocess that could not start or exited nonzero.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Command)
	if e.ExitCode >= 0 {
		msg = fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + tail(out, 2000)
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Is makes every CommandError match services.ErrCommandFailed.
func (e *CommandError) Is(target error) bool {
	return target == services.ErrCommandFailed
}

// Exec runs cmd synchronously. Context cancellation kills the process and is
// returned as the context error.
func Exec(ctx context.Context, cmd Command) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...) //nolint:gosec
	c.Env = append(SanitizedEnv(os.Environ()), cmd.Env...)
	c.Dir = cmd.Dir
	var buf bytes.Buffer
	c.Stdout = &buf
	c.Stderr = &buf

	err := c.Run()
	output := buf.Bytes()
	if err == nil {
		return output, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return output, fmt.Errorf("%s: %w", cmd.Name, ctxErr)
	}
	cmdErr := &CommandError{Command: cmd.Name, ExitCode: -1, Output: string(output), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	return output, cmdErr
}

// SanitizedEnv drops NO_PROXY and no_proxy from env.
func SanitizedEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		key, _, _ := strings.Cut(kv, "=")
		if key == "NO_PROXY" || key == "no_proxy" {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
