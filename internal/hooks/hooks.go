// Package hooks runs the operator-configured shell commands at lifecycle
// points. Hooks stay outside the executor contract: executors call the
// runner with a payload and treat a non-zero exit as an executor-level
// failure with the captured output attached.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// Timeout bounds every hook invocation.
const Timeout = 5 * time.Minute

// Hook names matching the configuration keys.
const (
	OnBranchCreate = "onBranchCreate"
	OnBeforePush   = "onBeforePush"
	OnPRCreated    = "onPRCreated"
	OnBeforeMerge  = "onBeforeMerge"
	OnMerged       = "onMerged"
)

// Env is the payload passed to every hook via environment variables.
type Env struct {
	IssueNumber string
	PRNumber    string
	Branch      string
	Repo        string
}

// Result captures a hook's exit code and output.
type Result struct {
	Name     string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Failed reports whether the hook exited non-zero.
func (r *Result) Failed() bool {
	return r != nil && r.ExitCode != 0
}

// Runner executes hook command lines through the shell.
type Runner struct {
	shell     string
	shellArgs []string
}

// NewRunner returns a Runner using the platform shell.
func NewRunner() (*Runner, error) {
	shell, args, err := determineShell()
	if err != nil {
		return nil, err
	}
	return &Runner{shell: shell, shellArgs: args}, nil
}

// Run executes one hook command line. A non-zero exit is reported in the
// Result, not as an error; errors mean the hook could not run at all.
func (r *Runner) Run(ctx context.Context, name, cmdline string, env Env) (*Result, error) {
	return r.RunWithTimeout(ctx, name, cmdline, env, Timeout)
}

// RunWithTimeout is Run with a caller-chosen timeout, used for the longer
// deploy steps.
func (r *Runner) RunWithTimeout(ctx context.Context, name, cmdline string, env Env, timeout time.Duration) (*Result, error) {
	if cmdline == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string(nil), r.shellArgs...), cmdline)
	cmd := exec.CommandContext(ctx, r.shell, args...)
	cmd.Env = append(os.Environ(),
		"ISSUE_NUMBER="+env.IssueNumber,
		"PR_NUMBER="+env.PRNumber,
		"BRANCH="+env.Branch,
		"REPO="+env.Repo,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Name:   name,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if ctx.Err() != nil {
			return result, fmt.Errorf("hook %s timed out after %s", name, timeout)
		}
		return result, fmt.Errorf("hook %s: %w", name, err)
	}

	return result, nil
}

func determineShell() (string, []string, error) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}, nil
	}

	if path, err := exec.LookPath("bash"); err == nil {
		return path, []string{"-c"}, nil
	}

	if path, err := exec.LookPath("sh"); err == nil {
		return path, []string{"-c"}, nil
	}

	return "", nil, fmt.Errorf("no suitable shell found")
}
