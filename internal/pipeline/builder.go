package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/libmanager/internal/artifacts"
	"git.home.luguber.info/inful/libmanager/internal/config"
	"git.home.luguber.info/inful/libmanager/internal/discovery"
	lmerrors "git.home.luguber.info/inful/libmanager/internal/errors"
	"git.home.luguber.info/inful/libmanager/internal/logfields"
	"git.home.luguber.info/inful/libmanager/internal/metrics"
	"git.home.luguber.info/inful/libmanager/internal/request"
	"git.home.luguber.info/inful/libmanager/internal/toolchain"
)

// Builder turns compile requests into a static library and its headers.
type Builder struct {
	cfg      config.ToolchainConfig
	runner   toolchain.ProcessRunner
	stderr   io.Writer
	recorder metrics.Recorder
}

// NewBuilder creates a builder running tools through runner. A nil runner
// executes real binaries inside cfg.WorkDir.
func NewBuilder(cfg config.ToolchainConfig, runner toolchain.ProcessRunner) *Builder {
	cfg = cfg.WithDefaults()
	if runner == nil {
		runner = toolchain.NewExecRunner(cfg.WorkDir)
	}
	return &Builder{
		cfg:      cfg,
		runner:   runner,
		stderr:   os.Stderr,
		recorder: metrics.NoopRecorder{},
	}
}

// WithStderr sets where failing tool output is forwarded.
func (b *Builder) WithStderr(w io.Writer) *Builder {
	if w != nil {
		b.stderr = w
	}
	return b
}

// WithRecorder attaches a metrics recorder.
func (b *Builder) WithRecorder(r metrics.Recorder) *Builder {
	if r != nil {
		b.recorder = r
	}
	return b
}

// Config returns the effective toolchain configuration.
func (b *Builder) Config() config.ToolchainConfig { return b.cfg }

// Run executes every compile stage for req. The report is returned even when
// the run fails so callers can summarise what happened.
func (b *Builder) Run(ctx context.Context, req request.CompileRequest) (*BuildReport, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, lmerrors.WrapInvalidArguments(err)
	}

	report := newBuildReport(uuid.NewString(), req)
	bs := &BuildState{
		Request:  req,
		Config:   b.cfg,
		Invoker:  toolchain.NewInvoker(b.cfg, b.runner).WithStderr(b.stderr).WithRecorder(b.recorder),
		Placer:   artifacts.NewPlacer(b.cfg),
		Recorder: b.recorder,
		Report:   report,
	}

	slog.Info("Compiling library",
		logfields.BuildID(report.BuildID),
		logfields.Library(req.Name),
		logfields.SourceDir(req.SourceDir))

	err := RunStages(ctx, bs, CompileStages())

	outcome := metrics.BuildOutcomeSuccess
	switch {
	case err == nil:
	case isCanceled(err):
		outcome = metrics.BuildOutcomeCanceled
	default:
		outcome = metrics.BuildOutcomeFailed
	}
	report.finish(outcome)
	b.recorder.ObserveBuildDuration(report.Duration)
	b.recorder.IncBuildOutcome(outcome)

	attrs := []any{
		logfields.BuildID(report.BuildID),
		logfields.Library(req.Name),
		logfields.Result(report.Outcome),
		logfields.DurationMS(float64(report.Duration.Milliseconds())),
	}
	if err != nil {
		slog.Error("Build finished", attrs...)
		return report, unwrapStage(err)
	}
	slog.Info("Build finished", append(attrs, logfields.Path(report.Archive), logfields.Count(len(report.Headers)))...)
	return report, nil
}

// unwrapStage returns the domain error carried by a stage error so callers
// can classify it directly.
func unwrapStage(err error) error {
	if se, ok := err.(*StageError); ok && se.Err != nil {
		return se.Err
	}
	return err
}

// Command is one external tool invocation as it would be executed.
type Command struct {
	Tool string   `yaml:"tool"`
	Args []string `yaml:"args"`
}

// DryRun is the derived layout and command sequence of a compile run.
type DryRun struct {
	Request  request.CompileRequest `yaml:"request"`
	WorkDir  string                 `yaml:"work_dir"`
	Sources  discovery.SourceSet    `yaml:"sources"`
	Plan     artifacts.Plan         `yaml:"plan"`
	Commands []Command              `yaml:"commands"`
}

// Plan lists the source directory and derives what Run would do, without
// invoking any tool or touching the work directory.
func (b *Builder) Plan(req request.CompileRequest) (*DryRun, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, lmerrors.WrapInvalidArguments(err)
	}
	set, err := discovery.Discover(req.SourceDir)
	if err != nil {
		return nil, err
	}
	plan := artifacts.NewPlan(req.Name, set.Sources, b.cfg)
	return &DryRun{
		Request: req,
		WorkDir: b.cfg.WorkDir,
		Sources: set,
		Plan:    plan,
		Commands: []Command{
			{Tool: b.cfg.Compiler, Args: toolchain.CompileArgs(set.Sources, req.IncludeFlags())},
			{Tool: b.cfg.Archiver, Args: toolchain.ArchiveArgs(plan.ArchiveName, plan.ObjectNames)},
		},
	}, nil
}
