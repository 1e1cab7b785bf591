package client

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ProcessRunner runs an external tool and returns its standard output.
// Implementations must not impose their own timeout; cancellation belongs
// to the caller's context.
type ProcessRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ToolError reports a non-zero exit from an external tool. Standard
// error is captured for diagnostics; output on stderr alone is not a
// failure.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with %d", e.Tool, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// ExecRunner implements ProcessRunner with os/exec. The zero value runs
// tools in the current directory with the inherited environment.
type ExecRunner struct {
	// Dir is the working directory for spawned tools; empty means the
	// process working directory.
	Dir string
	// Env replaces the environment when non-nil.
	Env []string
}

// Run executes the tool and waits for it. The child's stdout is the
// return value; a non-zero exit becomes a *ToolError.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if r.Env != nil {
		cmd.Env = r.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, &ToolError{
			Tool:     name,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	return stdout.Bytes(), nil
}
