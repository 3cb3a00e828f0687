package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrEmptyCommand is returned for a blank command string.
var ErrEmptyCommand = errors.New("empty command")

// Command runs cmdString split on whitespace, without a shell, and returns
// its trimmed stdout. The process is killed after timeout.
func Command(ctx context.Context, timeout time.Duration, cmdString string) (string, error) {
	fields := strings.Fields(cmdString)
	if len(fields) == 0 {
		return "", ErrEmptyCommand
	}
	for i, arg := range fields {
		arg = strings.TrimPrefix(arg, "'")
		arg = strings.TrimSuffix(arg, "'")
		fields[i] = arg
	}

	return run(ctx, timeout, fields[0], fields[1:]...)
}

// CommandPipe runs cmdString through `sh -c` so pipes and redirections work.
func CommandPipe(ctx context.Context, timeout time.Duration, cmdString string) (string, error) {
	if strings.TrimSpace(cmdString) == "" {
		return "", ErrEmptyCommand
	}
	return run(ctx, timeout, "sh", "-c", cmdString)
}

func run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	// children of a killed shell may hold stdout open
	cmd.WaitDelay = 100 * time.Millisecond

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	var stout bytes.Buffer
	cmd.Stdout = &stout

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%s: timed out after %s", name, timeout)
	}
	if err != nil {
		return "", fmt.Errorf("%v: %s", err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSuffix(stout.String(), "\n")
	return out, nil
}
