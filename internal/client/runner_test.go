package client

import (
	"context"
	"errors"
	"testing"
)

func TestExecRunner_CapturesStdout(t *testing.T) {
	runner := &ExecRunner{}

	out, err := runner.Run(context.Background(), "sh", "-c", "echo hello; echo noise >&2")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if string(out) != "hello\n" {
		t.Errorf("stdout = %q, want %q", out, "hello\n")
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	runner := &ExecRunner{}

	_, err := runner.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error = %T, want *ToolError", err)
	}
	if toolErr.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", toolErr.ExitCode)
	}
	if toolErr.Stderr != "broken\n" {
		t.Errorf("stderr = %q, want %q", toolErr.Stderr, "broken\n")
	}
}
