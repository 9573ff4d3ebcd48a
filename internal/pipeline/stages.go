package pipeline

import (
	"context"
	"fmt"
)

// Stage is a discrete unit of work in a compile run.
type Stage func(ctx context.Context, bs *BuildState) error

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names.
const (
	StageDiscoverSources StageName = "discover_sources"
	StageCompileObjects  StageName = "compile_objects"
	StageArchiveObjects  StageName = "archive_objects"
	StageCleanupObjects  StageName = "cleanup_objects"
	StageRelocateArchive StageName = "relocate_archive"
	StagePlaceHeaders    StageName = "place_headers"
)

// StageErrorKind classifies the outcome of a failed stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError ties a failure to the stage it happened in.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// NewFatalStageError creates a new fatal stage error.
func NewFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func NewCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// StageResult captures the high-level outcome of a stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
	StageResultWarning  StageResult = "warning"
	StageResultSkipped  StageResult = "skipped"
)

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []StageDef }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]StageDef, 0, 6)} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn})
	return p
}

// Build returns a copy of the stage definitions slice.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}

// CompileStages is the full compile command.
func CompileStages() []StageDef {
	return NewPipeline().
		Add(StageDiscoverSources, stageDiscoverSources).
		Add(StageCompileObjects, stageCompileObjects).
		Add(StageArchiveObjects, stageArchiveObjects).
		Add(StageCleanupObjects, stageCleanupObjects).
		Add(StageRelocateArchive, stageRelocateArchive).
		Add(StagePlaceHeaders, stagePlaceHeaders).
		Build()
}
