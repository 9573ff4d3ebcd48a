// Package toolchain runs the external compiler and archiver.
//
// The pipeline never spawns processes itself: it talks to a ProcessRunner,
// so tests can swap the real ExecRunner for a fake that only fabricates
// output files.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"git.home.luguber.info/inful/libmanager/internal/logfields"
)

// Result is the outcome of one external invocation. It is consumed by the
// stage that produced it and never stored.
type Result struct {
	Succeeded bool
	ExitCode  int
	Stdout    []byte
	Stderr    []byte
}

// ProcessRunner runs program with args to completion. A program that ran and
// exited non-zero is reported through Result, not as an error; the error
// return is reserved for a *SpawnError (or context cancellation).
type ProcessRunner interface {
	Run(ctx context.Context, program string, args []string) (Result, error)
}

// SpawnError means the program could not be located or started.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExecRunner invokes binaries from PATH with os/exec inside Dir.
type ExecRunner struct {
	// Dir is the working directory of the child; object files land here.
	Dir string
}

// NewExecRunner returns a runner working in dir ("" means the current directory).
func NewExecRunner(dir string) *ExecRunner {
	return &ExecRunner{Dir: dir}
}

func (r *ExecRunner) Run(ctx context.Context, program string, args []string) (Result, error) {
	path, err := exec.LookPath(program)
	if err != nil {
		return Result{}, &SpawnError{Program: program, Err: err}
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("exec toolchain command", logfields.Tool(program), logfields.Args(args), logfields.Dir(r.Dir))
	err = cmd.Run()

	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		res.Succeeded = true
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, &SpawnError{Program: program, Err: err}
}
