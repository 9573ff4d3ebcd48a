// Package toolchaintest provides a fake ProcessRunner that imitates a C
// compiler and archiver by writing placeholder files.
package toolchaintest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/libmanager/internal/toolchain"
)

// Call records one invocation.
type Call struct {
	Program string
	Args    []string
}

// FakeRunner imitates `cc -c` and `ar cr` inside Dir:
//   - a call whose first argument is "-c" writes <base>.o for every *.c argument;
//   - a call whose first argument is "cr" writes the archive, listing the
//     object names it bundled, one per line, and fails like ar when an
//     object is missing.
//
// Failures can be scripted per program with Fail and SpawnErr.
type FakeRunner struct {
	Dir      string
	Fail     map[string]toolchain.Result
	SpawnErr map[string]error

	mu    sync.Mutex
	calls []Call
}

var _ toolchain.ProcessRunner = (*FakeRunner)(nil)

// NewFakeRunner returns a runner fabricating files in dir.
func NewFakeRunner(dir string) *FakeRunner {
	return &FakeRunner{
		Dir:      dir,
		Fail:     map[string]toolchain.Result{},
		SpawnErr: map[string]error{},
	}
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Programs lists the invoked program names in order.
func (f *FakeRunner) Programs() []string {
	var names []string
	for _, c := range f.Calls() {
		names = append(names, c.Program)
	}
	return names
}

func (f *FakeRunner) Run(ctx context.Context, program string, args []string) (toolchain.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Program: program, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return toolchain.Result{}, err
	}
	if err, ok := f.SpawnErr[program]; ok {
		return toolchain.Result{}, &toolchain.SpawnError{Program: program, Err: err}
	}
	if res, ok := f.Fail[program]; ok {
		return res, nil
	}

	if len(args) == 0 {
		return failure(1, "%s: no input files\n", program), nil
	}
	switch args[0] {
	case "-c":
		return f.compile(args[1:])
	case "cr":
		return f.archive(program, args[1:])
	default:
		return failure(1, "%s: unsupported arguments %v\n", program, args), nil
	}
}

func (f *FakeRunner) compile(args []string) (toolchain.Result, error) {
	for i := 0; i < len(args); i++ {
		if args[i] == "-I" {
			i++ // skip the search path
			continue
		}
		if !strings.HasSuffix(args[i], ".c") {
			continue
		}
		base := filepath.Base(args[i])
		obj := strings.TrimSuffix(base, ".c") + ".o"
		if err := os.WriteFile(filepath.Join(f.Dir, obj), []byte("object of "+base+"\n"), 0o600); err != nil {
			return toolchain.Result{}, err
		}
	}
	return toolchain.Result{Succeeded: true}, nil
}

func (f *FakeRunner) archive(program string, args []string) (toolchain.Result, error) {
	if len(args) == 0 {
		return failure(1, "%s: no archive name\n", program), nil
	}
	var body strings.Builder
	for _, obj := range args[1:] {
		if _, err := os.Stat(filepath.Join(f.Dir, obj)); err != nil {
			return failure(1, "%s: %s: No such file or directory\n", program, obj), nil
		}
		body.WriteString(obj)
		body.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(f.Dir, args[0]), []byte(body.String()), 0o600); err != nil {
		return toolchain.Result{}, err
	}
	return toolchain.Result{Succeeded: true}, nil
}

func failure(code int, format string, a ...any) toolchain.Result {
	return toolchain.Result{ExitCode: code, Stderr: []byte(fmt.Sprintf(format, a...))}
}
