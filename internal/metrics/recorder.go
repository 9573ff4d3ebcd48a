package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
	ResultWarning  ResultLabel = "warning"
)

// BuildOutcomeLabel is the final status of a compile run.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// ToolResultLabel classifies a single external tool invocation.
type ToolResultLabel string

const (
	ToolResultSuccess    ToolResultLabel = "success"
	ToolResultFailed     ToolResultLabel = "failed"      // ran, exited non-zero
	ToolResultSpawnError ToolResultLabel = "spawn_error" // could not be launched
)

// Recorder defines observability hooks for compile runs. Implementations
// may forward to Prometheus or be no-ops.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	IncToolInvocation(tool string, result ToolResultLabel)
	SetSourceFiles(sources, headers int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) IncToolInvocation(string, ToolResultLabel)  {}
func (NoopRecorder) SetSourceFiles(int, int)                    {}
