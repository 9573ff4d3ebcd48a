package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	lmerrors "git.home.luguber.info/inful/libmanager/internal/errors"
	"git.home.luguber.info/inful/libmanager/internal/logfields"
	"git.home.luguber.info/inful/libmanager/internal/metrics"
)

// RunStages executes stages in order, recording timing and stopping on the
// first fatal error. A stage returning a warning-severity error is recorded
// and the run continues.
func RunStages(ctx context.Context, bs *BuildState, stages []StageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := NewCanceledStageError(st.Name, ctx.Err())
			bs.recordStage(st.Name, StageResultCanceled, 0, ctx.Err())
			return se
		default:
		}

		slog.Debug("Starting stage", logfields.Stage(string(st.Name)))
		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)

		if err != nil && !isCanceled(err) && !lmerrors.IsFatal(err) {
			bs.recordStage(st.Name, StageResultWarning, dur, err)
			slog.Warn("Stage completed with warnings",
				logfields.Stage(string(st.Name)),
				logfields.DurationMS(float64(dur.Milliseconds())),
				logfields.Error(err))
			continue
		}
		if err != nil {
			var se *StageError
			if isCanceled(err) {
				se = NewCanceledStageError(st.Name, err)
				bs.recordStage(st.Name, StageResultCanceled, dur, err)
			} else {
				se = NewFatalStageError(st.Name, err)
				bs.recordStage(st.Name, StageResultFatal, dur, err)
			}
			slog.Error("Stage failed",
				logfields.Stage(string(st.Name)),
				logfields.Result(string(se.Kind)),
				logfields.DurationMS(float64(dur.Milliseconds())),
				logfields.Error(err))
			return se
		}

		bs.recordStage(st.Name, StageResultSuccess, dur, nil)
		slog.Debug("Stage completed",
			logfields.Stage(string(st.Name)),
			logfields.DurationMS(float64(dur.Milliseconds())))
	}
	return nil
}

func (bs *BuildState) recordStage(name StageName, result StageResult, d time.Duration, err error) {
	if bs.Report != nil {
		bs.Report.RecordStage(name, result, d, err)
	}
	if bs.Recorder == nil {
		return
	}
	bs.Recorder.ObserveStageDuration(string(name), d)
	bs.Recorder.IncStageResult(string(name), resultLabel(result))
}

func resultLabel(r StageResult) metrics.ResultLabel {
	switch r {
	case StageResultSuccess:
		return metrics.ResultSuccess
	case StageResultCanceled:
		return metrics.ResultCanceled
	case StageResultWarning:
		return metrics.ResultWarning
	default:
		return metrics.ResultFatal
	}
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
