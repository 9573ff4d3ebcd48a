package toolchain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/libmanager/internal/config"
	lmerrors "git.home.luguber.info/inful/libmanager/internal/errors"
	"git.home.luguber.info/inful/libmanager/internal/logfields"
	"git.home.luguber.info/inful/libmanager/internal/metrics"
)

// Invoker builds the compiler and archiver argument lists and interprets
// their results. Each call is independently fatal; nothing is rolled back.
type Invoker struct {
	cfg      config.ToolchainConfig
	runner   ProcessRunner
	stderr   io.Writer
	recorder metrics.Recorder
}

// NewInvoker creates an invoker for cfg's compiler and archiver. Captured
// stderr of a failing tool is forwarded to os.Stderr unless WithStderr is used.
func NewInvoker(cfg config.ToolchainConfig, runner ProcessRunner) *Invoker {
	return &Invoker{
		cfg:      cfg,
		runner:   runner,
		stderr:   os.Stderr,
		recorder: metrics.NoopRecorder{},
	}
}

// WithStderr sets where a failing tool's captured stderr is written.
func (i *Invoker) WithStderr(w io.Writer) *Invoker {
	if w != nil {
		i.stderr = w
	}
	return i
}

// WithRecorder injects a metrics recorder.
func (i *Invoker) WithRecorder(r metrics.Recorder) *Invoker {
	if r != nil {
		i.recorder = r
	}
	return i
}

// CompileArgs returns `-c <sources...> <includeFlags...>`.
func CompileArgs(sources, includeFlags []string) []string {
	args := make([]string, 0, 1+len(sources)+len(includeFlags))
	args = append(args, "-c")
	args = append(args, sources...)
	return append(args, includeFlags...)
}

// ArchiveArgs returns `cr <archive> <objects...>`.
func ArchiveArgs(archive string, objects []string) []string {
	args := make([]string, 0, 2+len(objects))
	args = append(args, "cr", archive)
	return append(args, objects...)
}

// Compile turns every source into an object file in the runner's directory.
func (i *Invoker) Compile(ctx context.Context, sources, includeFlags []string) error {
	return i.run(ctx, i.cfg.Compiler, CompileArgs(sources, includeFlags))
}

// Archive bundles objects into archive in the runner's directory.
func (i *Invoker) Archive(ctx context.Context, archive string, objects []string) error {
	return i.run(ctx, i.cfg.Archiver, ArchiveArgs(archive, objects))
}

func (i *Invoker) run(ctx context.Context, tool string, args []string) error {
	slog.Info("Running toolchain command", logfields.Tool(tool), logfields.Args(args))

	res, err := i.runner.Run(ctx, tool, args)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		i.recorder.IncToolInvocation(tool, metrics.ToolResultSpawnError)
		slog.Error("Toolchain command could not be started", logfields.Tool(tool), logfields.Error(err))
		return lmerrors.ToolchainSpawnFailure(tool, err)
	}

	if len(res.Stdout) > 0 {
		slog.Debug("toolchain stdout", logfields.Tool(tool), slog.String("output", string(res.Stdout)))
	}

	if !res.Succeeded {
		i.recorder.IncToolInvocation(tool, metrics.ToolResultFailed)
		// forwarded verbatim; the tool's own diagnostics are what the user needs
		if _, werr := i.stderr.Write(res.Stderr); werr != nil {
			slog.Warn("Failed to forward toolchain stderr", logfields.Tool(tool), logfields.Error(werr))
		}
		return lmerrors.ToolchainExecutionFailure(tool, res.ExitCode, res.Stderr)
	}

	i.recorder.IncToolInvocation(tool, metrics.ToolResultSuccess)
	return nil
}
