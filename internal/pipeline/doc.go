// Package pipeline runs a compile request through its ordered stages:
//
//	discover_sources -> compile_objects -> archive_objects ->
//	cleanup_objects -> relocate_archive -> place_headers
//
// Stages run strictly one after another on the calling goroutine. The first
// stage returning a fatal error ends the run; effects of earlier stages are
// kept.
package pipeline
