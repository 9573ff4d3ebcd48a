package pipeline

import (
	"time"

	"git.home.luguber.info/inful/libmanager/internal/artifacts"
	"git.home.luguber.info/inful/libmanager/internal/config"
	"git.home.luguber.info/inful/libmanager/internal/discovery"
	"git.home.luguber.info/inful/libmanager/internal/metrics"
	"git.home.luguber.info/inful/libmanager/internal/request"
	"git.home.luguber.info/inful/libmanager/internal/toolchain"
)

// BuildState is threaded through every stage of one run. Each stage fills in
// the fields later stages read (Sources, Plan) and records into Report.
type BuildState struct {
	Request request.CompileRequest
	Config  config.ToolchainConfig

	Sources discovery.SourceSet
	Plan    artifacts.Plan

	Invoker  *toolchain.Invoker
	Placer   *artifacts.Placer
	Recorder metrics.Recorder

	Report *BuildReport
}

// StageRecord is the outcome of a single stage.
type StageRecord struct {
	Name     StageName     `yaml:"name"`
	Result   StageResult   `yaml:"result"`
	Duration time.Duration `yaml:"duration"`
	Error    string        `yaml:"error,omitempty"`
}

// BuildReport summarises a compile run. It lives only as long as the process.
type BuildReport struct {
	BuildID        string        `yaml:"build_id"`
	Library        string        `yaml:"library"`
	SourceDir      string        `yaml:"source_dir"`
	Stages         []StageRecord `yaml:"stages"`
	Outcome        string        `yaml:"outcome"`
	Archive        string        `yaml:"archive,omitempty"`
	Headers        []string      `yaml:"headers,omitempty"`
	HeaderFailures []string      `yaml:"header_failures,omitempty"`
	RemovedObjects []string      `yaml:"removed_objects,omitempty"`
	Started        time.Time     `yaml:"started"`
	Duration       time.Duration `yaml:"duration"`
}

func newBuildReport(buildID string, req request.CompileRequest) *BuildReport {
	return &BuildReport{
		BuildID:   buildID,
		Library:   req.Name,
		SourceDir: req.SourceDir,
		Started:   time.Now(),
	}
}

// RecordStage appends the stage outcome.
func (r *BuildReport) RecordStage(name StageName, result StageResult, d time.Duration, err error) {
	rec := StageRecord{Name: name, Result: result, Duration: d}
	if err != nil {
		rec.Error = err.Error()
	}
	r.Stages = append(r.Stages, rec)
}

// StageResult returns the recorded result of name, or skipped if it never ran.
func (r *BuildReport) StageResult(name StageName) StageResult {
	for _, s := range r.Stages {
		if s.Name == name {
			return s.Result
		}
	}
	return StageResultSkipped
}

func (r *BuildReport) finish(outcome metrics.BuildOutcomeLabel) {
	r.Outcome = string(outcome)
	r.Duration = time.Since(r.Started)
}
