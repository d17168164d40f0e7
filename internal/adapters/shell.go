// Package adapters exposes each external capability as a tool adapter
// with a uniform result shape.
package adapters

import (
	"context"
	"errors"

	"github.com/probeworks/toolhost/internal/shell"
)

// RunCommandResult is the structured outcome of a shell tool invocation.
type RunCommandResult struct {
	Success  bool   `json:"success"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	Cwd      string `json:"cwd"`
}

// Sandbox executes an already-validated command in an isolated
// environment instead of the host shell.
type Sandbox interface {
	Exec(ctx context.Context, command, workdir string) (shell.Result, error)
}

// ShellAdapter is the shell-execution tool surface.
type ShellAdapter interface {
	RunCommand(ctx context.Context, command string) RunCommandResult
	ChangeDirectory(ctx context.Context, dir string) RunCommandResult
	CurrentDirectory() RunCommandResult
}

// DefaultShellAdapter runs commands through the validating Runner, or
// through a sandbox when one is configured. The Runner keeps owning the
// working-directory cursor in both modes.
type DefaultShellAdapter struct {
	validator *shell.Validator
	runner    *shell.Runner
	sandbox   Sandbox
}

// NewShellAdapter creates a shell adapter. sandbox may be nil for plain
// host execution.
func NewShellAdapter(validator *shell.Validator, runner *shell.Runner, sandbox Sandbox) *DefaultShellAdapter {
	return &DefaultShellAdapter{validator: validator, runner: runner, sandbox: sandbox}
}

// RunCommand validates and executes one command. Denials come back as a
// failed result with the reason in stderr; they are not errors.
func (a *DefaultShellAdapter) RunCommand(ctx context.Context, command string) RunCommandResult {
	if a.sandbox != nil {
		return a.runSandboxed(ctx, command)
	}

	result, err := a.runner.Run(ctx, command)
	return toRunCommandResult(result, err)
}

// runSandboxed validates against the host cursor, then hands allowed
// commands to the sandbox. Directory changes stay on the host cursor so
// the sandbox sees a consistent workdir.
func (a *DefaultShellAdapter) runSandboxed(ctx context.Context, command string) RunCommandResult {
	cwd := a.runner.WorkingDir()

	verdict := a.validator.Validate(command, cwd)
	if !verdict.Allow {
		return RunCommandResult{
			Success:  false,
			Stderr:   "blocked: " + verdict.Reason,
			ExitCode: shell.DeniedExitCode,
			Cwd:      cwd,
		}
	}

	if shell.IsChangeDir(command) {
		result, err := a.runner.Run(ctx, command)
		return toRunCommandResult(result, err)
	}

	result, err := a.sandbox.Exec(ctx, command, cwd)
	if err != nil {
		return RunCommandResult{
			Success:  false,
			Stderr:   err.Error(),
			ExitCode: shell.SpawnExitCode,
			Cwd:      cwd,
		}
	}
	result.Dir = cwd
	return toRunCommandResult(result, nil)
}

// ChangeDirectory moves the working-directory cursor.
func (a *DefaultShellAdapter) ChangeDirectory(ctx context.Context, dir string) RunCommandResult {
	result, err := a.runner.Run(ctx, "cd "+dir)
	return toRunCommandResult(result, err)
}

// CurrentDirectory reports the working-directory cursor without spawning
// anything.
func (a *DefaultShellAdapter) CurrentDirectory() RunCommandResult {
	cwd := a.runner.WorkingDir()
	return RunCommandResult{Success: true, Stdout: cwd, Cwd: cwd}
}

func toRunCommandResult(result shell.Result, err error) RunCommandResult {
	out := RunCommandResult{
		Success:  err == nil && result.ExitCode == 0,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		ExitCode: result.ExitCode,
		Cwd:      result.Dir,
	}
	if err != nil && !errors.Is(err, shell.ErrCommandDenied) && out.Stderr == "" {
		out.Stderr = err.Error()
	}
	return out
}
