package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "libmanager"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	stageDuration   *prom.HistogramVec
	stageResults    *prom.CounterVec
	buildDuration   prom.Histogram
	buildOutcome    *prom.CounterVec
	toolInvocations *prom.CounterVec
	sourceFiles     *prom.GaugeVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg
// (a fresh registry when reg is nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual compile pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total compile run duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Compile runs by final status",
		}, []string{"outcome"}),
		toolInvocations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "External compiler/archiver invocations by result",
		}, []string{"tool", "result"}),
		sourceFiles: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "source_files",
			Help:      "Files discovered in the library source directory",
		}, []string{"kind"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.buildDuration, pr.buildOutcome, pr.toolInvocations, pr.sourceFiles)
	return pr
}

// Registry exposes the underlying registry (tests, custom exporters).
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncToolInvocation(tool string, result ToolResultLabel) {
	if p == nil {
		return
	}
	p.toolInvocations.WithLabelValues(tool, string(result)).Inc()
}

func (p *PrometheusRecorder) SetSourceFiles(sources, headers int) {
	if p == nil {
		return
	}
	p.sourceFiles.WithLabelValues("source").Set(float64(sources))
	p.sourceFiles.WithLabelValues("header").Set(float64(headers))
}

// WriteTextfile writes the registry in the Prometheus text exposition format.
// The file is written atomically (temp file + rename).
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
