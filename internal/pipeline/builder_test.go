package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/libmanager/internal/config"
	lmerrors "git.home.luguber.info/inful/libmanager/internal/errors"
	"git.home.luguber.info/inful/libmanager/internal/metrics"
	"git.home.luguber.info/inful/libmanager/internal/pipeline"
	"git.home.luguber.info/inful/libmanager/internal/request"
	"git.home.luguber.info/inful/libmanager/internal/toolchain"
	"git.home.luguber.info/inful/libmanager/internal/toolchain/toolchaintest"
)

type fixture struct {
	work   string
	srcDir string
	cfg    config.ToolchainConfig
	runner *toolchaintest.FakeRunner
	stderr *bytes.Buffer
}

// newFixture lays out a work dir with lib/ and a "mathlib" source directory
// holding add.c, sub.c, math.h and a README.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	work := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(work, "lib"), 0o750))

	srcDir := filepath.Join(t.TempDir(), "mathlib")
	require.NoError(t, os.Mkdir(srcDir, 0o750))
	for name, body := range map[string]string{
		"add.c":     "int add(int a, int b) { return a + b; }\n",
		"sub.c":     "int sub(int a, int b) { return a - b; }\n",
		"math.h":    "int add(int, int);\nint sub(int, int);\n",
		"README.md": "mathlib\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(srcDir, name), []byte(body), 0o640))
	}

	cfg := config.DefaultToolchainConfig()
	cfg.WorkDir = work
	return &fixture{
		work:   work,
		srcDir: srcDir,
		cfg:    cfg,
		runner: toolchaintest.NewFakeRunner(work),
		stderr: &bytes.Buffer{},
	}
}

func (f *fixture) builder() *pipeline.Builder {
	return pipeline.NewBuilder(f.cfg, f.runner).WithStderr(f.stderr)
}

func (f *fixture) request(t *testing.T, pkgs ...string) request.CompileRequest {
	t.Helper()
	req, err := request.New(f.srcDir, pkgs, f.cfg.HomebrewRoot)
	require.NoError(t, err)
	return req
}

func objectFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.o"))
	require.NoError(t, err)
	return matches
}

func TestRun_Mathlib(t *testing.T) {
	f := newFixture(t)

	report, err := f.builder().Run(context.Background(), f.request(t))
	require.NoError(t, err)

	calls := f.runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "gcc", calls[0].Program)
	assert.Equal(t, []string{"-c", filepath.Join(f.srcDir, "add.c"), filepath.Join(f.srcDir, "sub.c")}, calls[0].Args)
	assert.Equal(t, "ar", calls[1].Program)
	assert.Equal(t, []string{"cr", "mathlib.a", "add.o", "sub.o"}, calls[1].Args)

	archive, err := os.ReadFile(filepath.Join(f.work, "lib", "mathlib.a"))
	require.NoError(t, err)
	assert.Equal(t, "add.o\nsub.o\n", string(archive))
	assert.NoFileExists(t, filepath.Join(f.work, "mathlib.a"))

	header, err := os.ReadFile(filepath.Join(f.work, "include", "mathlib", "math.h"))
	require.NoError(t, err)
	assert.Contains(t, string(header), "int add(int, int);")
	assert.NoFileExists(t, filepath.Join(f.work, "include", "mathlib", "README.md"))

	assert.Empty(t, objectFiles(t, f.work))

	assert.Equal(t, "success", report.Outcome)
	assert.NotEmpty(t, report.BuildID)
	assert.Equal(t, "mathlib", report.Library)
	assert.Equal(t, filepath.Join("lib", "mathlib.a"), report.Archive)
	assert.Equal(t, []string{filepath.Join("include", "mathlib", "math.h")}, report.Headers)
	assert.ElementsMatch(t, []string{"add.o", "sub.o"}, report.RemovedObjects)
	require.Len(t, report.Stages, 6)
	for _, st := range report.Stages {
		assert.Equal(t, pipeline.StageResultSuccess, st.Result, st.Name)
	}
	assert.Empty(t, f.stderr.String())
}

func TestRun_HomebrewIncludeFlags(t *testing.T) {
	f := newFixture(t)

	_, err := f.builder().Run(context.Background(), f.request(t, "sdl2/2.28.5/include", "glfw/3.3.8/include"))
	require.NoError(t, err)

	calls := f.runner.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, []string{
		"-c", filepath.Join(f.srcDir, "add.c"), filepath.Join(f.srcDir, "sub.c"),
		"-I", "/opt/homebrew/Cellar/sdl2/2.28.5/include",
		"-I", "/opt/homebrew/Cellar/glfw/3.3.8/include",
	}, calls[0].Args)
}

func TestRun_NoSourcesDelegatesToTools(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(filepath.Join(f.srcDir, "add.c")))
	require.NoError(t, os.Remove(filepath.Join(f.srcDir, "sub.c")))
	f.runner.Fail["gcc"] = toolchain.Result{ExitCode: 1, Stderr: []byte("gcc: fatal error: no input files\n")}

	report, err := f.builder().Run(context.Background(), f.request(t))
	require.Error(t, err)
	assert.True(t, lmerrors.IsCategory(err, lmerrors.CategoryToolchainExecution))

	calls := f.runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-c"}, calls[0].Args)
	assert.Equal(t, "gcc: fatal error: no input files\n", f.stderr.String())
	assert.Equal(t, "failed", report.Outcome)
}

func TestRun_NoSourcesArchivesEmptyLibrary(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(filepath.Join(f.srcDir, "add.c")))
	require.NoError(t, os.Remove(filepath.Join(f.srcDir, "sub.c")))

	report, err := f.builder().Run(context.Background(), f.request(t))
	require.NoError(t, err)

	calls := f.runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "gcc", calls[0].Program)
	assert.Equal(t, []string{"-c"}, calls[0].Args)
	assert.Equal(t, "ar", calls[1].Program)
	assert.Equal(t, []string{"cr", "mathlib.a"}, calls[1].Args)

	archive, err := os.ReadFile(filepath.Join(f.work, "lib", "mathlib.a"))
	require.NoError(t, err)
	assert.Empty(t, archive)
	assert.FileExists(t, filepath.Join(f.work, "include", "mathlib", "math.h"))
	assert.Equal(t, "success", report.Outcome)
}

func TestRun_CompileFailureSkipsArchive(t *testing.T) {
	f := newFixture(t)
	f.runner.Fail["gcc"] = toolchain.Result{ExitCode: 1, Stderr: []byte("add.c:1: error: expected ';'\n")}

	report, err := f.builder().Run(context.Background(), f.request(t))
	require.Error(t, err)

	le, ok := lmerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, lmerrors.CategoryToolchainExecution, le.Category)
	assert.Equal(t, 1, le.Context["exit_code"])

	assert.Equal(t, []string{"gcc"}, f.runner.Programs())
	assert.Equal(t, "add.c:1: error: expected ';'\n", f.stderr.String())
	assert.NoFileExists(t, filepath.Join(f.work, "mathlib.a"))
	assert.NoFileExists(t, filepath.Join(f.work, "lib", "mathlib.a"))
	assert.NoDirExists(t, filepath.Join(f.work, "include", "mathlib"))

	assert.Equal(t, pipeline.StageResultFatal, report.StageResult(pipeline.StageCompileObjects))
	assert.Equal(t, pipeline.StageResultSkipped, report.StageResult(pipeline.StageArchiveObjects))
	require.Len(t, report.Stages, 2)
	assert.Equal(t, err.Error(), report.Stages[1].Error)
	assert.NotContains(t, report.Stages[1].Error, "stage compile_objects")
}

func TestRun_ArchiveFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.Fail["ar"] = toolchain.Result{ExitCode: 2, Stderr: []byte("ar: bad archive\n")}

	_, err := f.builder().Run(context.Background(), f.request(t))
	require.Error(t, err)
	assert.True(t, lmerrors.IsCategory(err, lmerrors.CategoryToolchainExecution))
	assert.Equal(t, "ar: bad archive\n", f.stderr.String())
	assert.NoFileExists(t, filepath.Join(f.work, "lib", "mathlib.a"))
}

func TestRun_UnreadableSourceDir(t *testing.T) {
	f := newFixture(t)
	f.srcDir = filepath.Join(f.srcDir, "missing")

	report, err := f.builder().Run(context.Background(), f.request(t))
	require.Error(t, err)
	assert.True(t, lmerrors.IsCategory(err, lmerrors.CategoryDirectoryUnreadable))
	assert.Empty(t, f.runner.Calls())
	assert.Equal(t, pipeline.StageResultFatal, report.StageResult(pipeline.StageDiscoverSources))
}

func TestRun_SpawnFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.SpawnErr["gcc"] = errors.New("executable file not found in $PATH")

	_, err := f.builder().Run(context.Background(), f.request(t))
	require.Error(t, err)
	assert.True(t, lmerrors.IsCategory(err, lmerrors.CategoryToolchainSpawn))
}

func TestRun_MissingLibDir(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(filepath.Join(f.work, "lib")))

	report, err := f.builder().Run(context.Background(), f.request(t))
	require.Error(t, err)
	assert.True(t, lmerrors.IsCategory(err, lmerrors.CategoryArtifactPlacement))

	// cleanup already ran; the archive stays in the work dir
	assert.Empty(t, objectFiles(t, f.work))
	assert.FileExists(t, filepath.Join(f.work, "mathlib.a"))
	assert.Equal(t, pipeline.StageResultSkipped, report.StageResult(pipeline.StagePlaceHeaders))
}

func TestRun_StaleObjectsRemoved(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.work, "old.o"), []byte("stale"), 0o600))

	_, err := f.builder().Run(context.Background(), f.request(t))
	require.NoError(t, err)
	assert.Empty(t, objectFiles(t, f.work))
}

func TestRun_HeaderFailureFailsRun(t *testing.T) {
	f := newFixture(t)
	// a directory named like a header cannot be copied as a file
	require.NoError(t, os.MkdirAll(filepath.Join(f.work, "include", "mathlib", "math.h"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(f.srcDir, "vec.h"), []byte("struct vec;\n"), 0o640))

	report, err := f.builder().Run(context.Background(), f.request(t))
	require.Error(t, err)
	assert.True(t, lmerrors.IsCategory(err, lmerrors.CategoryHeaderCopy))

	assert.FileExists(t, filepath.Join(f.work, "include", "mathlib", "vec.h"))
	assert.FileExists(t, filepath.Join(f.work, "lib", "mathlib.a"))
	assert.Equal(t, []string{filepath.Join(f.srcDir, "math.h")}, report.HeaderFailures)
	assert.Equal(t, "failed", report.Outcome)
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.builder().Run(ctx, f.request(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.runner.Calls())
	assert.Equal(t, "canceled", report.Outcome)
	assert.Equal(t, pipeline.StageResultCanceled, report.StageResult(pipeline.StageDiscoverSources))
	assert.Equal(t, context.Canceled.Error(), report.Stages[0].Error)
}

// cancelAfterRunner cancels the run once the wrapped runner returns.
type cancelAfterRunner struct {
	toolchain.ProcessRunner
	cancel context.CancelFunc
}

func (r cancelAfterRunner) Run(ctx context.Context, program string, args []string) (toolchain.Result, error) {
	defer r.cancel()
	return r.ProcessRunner.Run(ctx, program, args)
}

func TestRun_CanceledBetweenStages(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := pipeline.NewBuilder(f.cfg, cancelAfterRunner{ProcessRunner: f.runner, cancel: cancel})
	report, err := b.Run(ctx, f.request(t))
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"gcc"}, f.runner.Programs())
	assert.Equal(t, pipeline.StageResultSuccess, report.StageResult(pipeline.StageCompileObjects))
	assert.Equal(t, pipeline.StageResultCanceled, report.StageResult(pipeline.StageArchiveObjects))
	assert.NoFileExists(t, filepath.Join(f.work, "lib", "mathlib.a"))
}

type countingRecorder struct {
	metrics.NoopRecorder
	stages   map[string]metrics.ResultLabel
	outcomes []metrics.BuildOutcomeLabel
	tools    map[string]metrics.ToolResultLabel
	sources  int
	headers  int
}

func (c *countingRecorder) IncStageResult(stage string, r metrics.ResultLabel) { c.stages[stage] = r }
func (c *countingRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) {
	c.outcomes = append(c.outcomes, o)
}
func (c *countingRecorder) IncToolInvocation(tool string, r metrics.ToolResultLabel) {
	c.tools[tool] = r
}
func (c *countingRecorder) SetSourceFiles(sources, headers int) {
	c.sources, c.headers = sources, headers
}

func TestRun_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	rec := &countingRecorder{stages: map[string]metrics.ResultLabel{}, tools: map[string]metrics.ToolResultLabel{}}

	_, err := f.builder().WithRecorder(rec).Run(context.Background(), f.request(t))
	require.NoError(t, err)

	assert.Len(t, rec.stages, 6)
	assert.Equal(t, metrics.ResultSuccess, rec.stages[string(pipeline.StagePlaceHeaders)])
	assert.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildOutcomeSuccess}, rec.outcomes)
	assert.Equal(t, metrics.ToolResultSuccess, rec.tools["gcc"])
	assert.Equal(t, metrics.ToolResultSuccess, rec.tools["ar"])
	assert.Equal(t, 2, rec.sources)
	assert.Equal(t, 1, rec.headers)
}

func TestRun_InvalidConfig(t *testing.T) {
	f := newFixture(t)
	f.cfg.LibDir = "include"

	_, err := f.builder().Run(context.Background(), f.request(t))
	require.Error(t, err)
	assert.True(t, lmerrors.IsCategory(err, lmerrors.CategoryInvalidArguments))
	assert.Empty(t, f.runner.Calls())
}

func TestPlan_HasNoSideEffects(t *testing.T) {
	f := newFixture(t)

	dry, err := f.builder().Plan(f.request(t))
	require.NoError(t, err)

	assert.Empty(t, f.runner.Calls())
	assert.NoDirExists(t, filepath.Join(f.work, "include"))
	assert.Equal(t, "mathlib.a", dry.Plan.ArchiveName)
	assert.Equal(t, []string{"add.o", "sub.o"}, dry.Plan.ObjectNames)
	require.Len(t, dry.Commands, 2)
	assert.Equal(t, "gcc", dry.Commands[0].Tool)
	assert.Equal(t, []string{"cr", "mathlib.a", "add.o", "sub.o"}, dry.Commands[1].Args)
}

func TestRunStages_StopsAtFirstError(t *testing.T) {
	var ran []pipeline.StageName
	boom := errors.New("boom")
	stages := pipeline.NewPipeline().
		Add("one", func(context.Context, *pipeline.BuildState) error { ran = append(ran, "one"); return nil }).
		Add("two", func(context.Context, *pipeline.BuildState) error { ran = append(ran, "two"); return boom }).
		Add("three", func(context.Context, *pipeline.BuildState) error { ran = append(ran, "three"); return nil }).
		Build()
	require.Len(t, stages, 3)

	bs := &pipeline.BuildState{Report: &pipeline.BuildReport{Started: time.Now()}}
	err := pipeline.RunStages(context.Background(), bs, stages)
	require.ErrorIs(t, err, boom)

	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.StageErrorFatal, se.Kind)
	assert.Equal(t, pipeline.StageName("two"), se.Stage)
	assert.Equal(t, []pipeline.StageName{"one", "two"}, ran)
	require.Len(t, bs.Report.Stages, 2)
	assert.Equal(t, "boom", bs.Report.Stages[1].Error)
	assert.Equal(t, pipeline.StageResultFatal, bs.Report.Stages[1].Result)
}

func TestRunStages_WarningContinues(t *testing.T) {
	var ran []pipeline.StageName
	warn := lmerrors.HeaderCopyFailure("vec.h", errors.New("permission denied"))
	stages := pipeline.NewPipeline().
		Add("one", func(context.Context, *pipeline.BuildState) error { ran = append(ran, "one"); return warn }).
		Add("two", func(context.Context, *pipeline.BuildState) error { ran = append(ran, "two"); return nil }).
		Build()

	bs := &pipeline.BuildState{Report: &pipeline.BuildReport{Started: time.Now()}}
	require.NoError(t, pipeline.RunStages(context.Background(), bs, stages))
	assert.Equal(t, []pipeline.StageName{"one", "two"}, ran)
	assert.Equal(t, pipeline.StageResultWarning, bs.Report.StageResult("one"))
	assert.Equal(t, warn.Error(), bs.Report.Stages[0].Error)
	assert.Equal(t, pipeline.StageResultSuccess, bs.Report.StageResult("two"))
}
