package transcode

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
)

// commandRunner abstracts subprocess execution so the fallback and
// sequencing behavior can be exercised without real binaries.
type commandRunner interface {
	// Run executes the command, streaming each combined output line to
	// onLine, and returns the exit code. A non-zero exit is not an error;
	// err is reserved for launch failures.
	Run(ctx context.Context, name string, args []string, onLine func(string)) (int, error)

	// Output executes the command and returns its stdout
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner is the exec.Command-backed default
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("failed to start %s: %w", name, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}

	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
