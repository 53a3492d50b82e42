package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
)

// Command is an external command to run. Env is added to the service environment.
type Command struct {
	Name   string
	Args   []string
	Env    map[string]string
	Stdout io.Writer
}

// Result is the outcome of a command that could be started.
type Result struct {
	ExitCode int
	Stderr   string
}

// ExecRunner runs commands on the local host.
type ExecRunner struct{}

// Run runs the command to completion. A non-zero exit is reported in the result, not as an
// error; the error is for commands that could not be run at all.
func (ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = environ(c.Env)
	var stderr bytes.Buffer
	cmd.Stdout = c.Stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, fmt.Errorf("error running %s: %w", c.Name, err)
	}
	return result, nil
}

func environ(env map[string]string) []string {
	envSlice := os.Environ()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		envSlice = append(envSlice, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return envSlice
}
