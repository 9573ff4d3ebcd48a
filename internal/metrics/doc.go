// Package metrics provides build metrics for libmanager compile runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	invoker := toolchain.NewInvoker(cfg, runner).WithRecorder(recorder)
//
// PrometheusRecorder registers its collectors on a private registry. A
// single-shot CLI has nothing to scrape, so the registry is exported with
// WriteTextfile (for example into a node_exporter textfile collector
// directory) when --metrics-file is given.
package metrics
