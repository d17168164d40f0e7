package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"mvdan.cc/sh/v3/syntax"
)

// Sentinel exit codes surfaced in results. Timeout matches coreutils
// timeout(1); spawn failure matches the shell's command-not-found code.
const (
	DeniedExitCode  = -1
	TimeoutExitCode = 124
	SpawnExitCode   = 127
)

// ErrCommandDenied marks a validator denial. The accompanying Result
// still carries the human-readable reason in Stderr.
var ErrCommandDenied = errors.New("command denied")

// Result is the structured outcome of one command invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Dir      string
}

// Runner validates and executes commands while owning the process-wide
// working-directory cursor. The cursor is the only shared mutable state:
// validation, execution, and cd all happen under one mutex so a command
// never runs in a directory another invocation is mid-way through
// changing.
type Runner struct {
	mu        sync.Mutex
	cwd       string
	validator *Validator
	timeout   time.Duration
}

// NewRunner creates a runner anchored at the process start directory.
func NewRunner(validator *Validator, timeout time.Duration) (*Runner, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("cannot determine working directory: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{
		cwd:       cwd,
		validator: validator,
		timeout:   timeout,
	}, nil
}

// WorkingDir returns the current working-directory cursor.
func (r *Runner) WorkingDir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cwd
}

// Run validates raw and, if allowed, executes it in the current working
// directory. Denials return ErrCommandDenied alongside a result whose
// Stderr carries the reason; every execution outcome (non-zero exit,
// timeout, spawn failure) is a normal result with a nil error.
func (r *Runner) Run(ctx context.Context, raw string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	verdict := r.validator.Validate(raw, r.cwd)
	if !verdict.Allow {
		return Result{
			ExitCode: DeniedExitCode,
			Stderr:   fmt.Sprintf("blocked: %s", verdict.Reason),
			Dir:      r.cwd,
		}, fmt.Errorf("%w (%s): %s", ErrCommandDenied, verdict.Rule, verdict.Reason)
	}

	if target, ok := changeDirTarget(raw); ok {
		return r.changeDir(target), nil
	}

	return r.spawn(ctx, raw), nil
}

// IsChangeDir reports whether raw is a plain directory change, handled by
// the cursor rather than a subprocess.
func IsChangeDir(raw string) bool {
	_, ok := changeDirTarget(raw)
	return ok
}

// changeDirTarget reports whether raw is a plain directory change and, if
// so, its target. The command is split with shell-word rules so a quoted
// target keeps its spaces; anything beyond a single bare cd statement
// (chains, pipes, redirections, dynamic targets) falls through to the
// shell, where the chain's cd stays local to that subprocess.
func changeDirTarget(raw string) (string, bool) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	file, err := parser.Parse(strings.NewReader(raw), "")
	if err != nil || len(file.Stmts) != 1 {
		return "", false
	}
	stmt := file.Stmts[0]
	if len(stmt.Redirs) > 0 {
		return "", false
	}
	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok || len(call.Args) == 0 || len(call.Args) > 2 {
		return "", false
	}
	if name, literal := flattenWord(call.Args[0]); !literal || name != "cd" {
		return "", false
	}
	if len(call.Args) == 1 {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		return home, true
	}
	target, literal := flattenWord(call.Args[1])
	if !literal || target == "" {
		return "", false
	}
	return target, true
}

// changeDir resolves the target against the cursor, verifies it exists
// and is a directory, and moves the cursor. No subprocess is spawned.
// Path-rule denials were already handled by Validate (cd is a mutating
// command).
func (r *Runner) changeDir(target string) Result {
	resolved := ResolvePath(target, r.cwd)
	if resolved == "" {
		return Result{ExitCode: 1, Stderr: "cd: empty path", Dir: r.cwd}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return Result{
			ExitCode: 1,
			Stderr:   fmt.Sprintf("cd: %s: no such file or directory", target),
			Dir:      r.cwd,
		}
	}
	if !info.IsDir() {
		return Result{
			ExitCode: 1,
			Stderr:   fmt.Sprintf("cd: %s: not a directory", target),
			Dir:      r.cwd,
		}
	}

	r.cwd = filepath.Clean(resolved)
	return Result{ExitCode: 0, Dir: r.cwd}
}

// spawn runs the command under the configured timeout, in its own process
// group so a timeout can take the whole tree down, not just the shell.
func (r *Runner) spawn(ctx context.Context, raw string) Result {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.Command("/bin/sh", "-c", raw)
	cmd.Dir = r.cwd
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{
			ExitCode: SpawnExitCode,
			Stderr:   fmt.Sprintf("failed to start command: %v", err),
			Dir:      r.cwd,
		}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		r.killProcessGroup(cmd)
		<-done
		return Result{
			ExitCode: TimeoutExitCode,
			Stdout:   stdout.String(),
			Stderr:   fmt.Sprintf("command timed out after %s", r.timeout),
			Dir:      r.cwd,
		}
	case err := <-done:
		result := Result{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
			Dir:    r.cwd,
		}
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				result.ExitCode = exitErr.ExitCode()
			} else {
				result.ExitCode = SpawnExitCode
				if result.Stderr == "" {
					result.Stderr = err.Error()
				}
			}
		}
		return result
	}
}

// killProcessGroup kills the command's whole process group.
func (r *Runner) killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil || cmd.Process.Pid <= 0 {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
