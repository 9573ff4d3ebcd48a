package pipeline

import (
	"context"
	"path/filepath"

	"git.home.luguber.info/inful/libmanager/internal/artifacts"
	"git.home.luguber.info/inful/libmanager/internal/discovery"
)

func stageDiscoverSources(_ context.Context, bs *BuildState) error {
	set, err := discovery.Discover(bs.Request.SourceDir)
	if err != nil {
		return err
	}
	bs.Sources = set
	bs.Plan = artifacts.NewPlan(bs.Request.Name, set.Sources, bs.Config)
	if bs.Recorder != nil {
		bs.Recorder.SetSourceFiles(len(set.Sources), len(set.Headers))
	}
	return nil
}

func stageCompileObjects(ctx context.Context, bs *BuildState) error {
	return bs.Invoker.Compile(ctx, bs.Sources.Sources, bs.Request.IncludeFlags())
}

func stageArchiveObjects(ctx context.Context, bs *BuildState) error {
	return bs.Invoker.Archive(ctx, bs.Plan.ArchiveName, bs.Plan.ObjectNames)
}

func stageCleanupObjects(_ context.Context, bs *BuildState) error {
	removed := bs.Placer.CleanupObjects()
	bs.Report.RemovedObjects = removed
	return nil
}

func stageRelocateArchive(_ context.Context, bs *BuildState) error {
	if err := bs.Placer.RelocateArchive(bs.Plan); err != nil {
		return err
	}
	bs.Report.Archive = bs.Plan.ArchiveDest
	return nil
}

func stagePlaceHeaders(_ context.Context, bs *BuildState) error {
	placed, err := bs.Placer.PlaceHeaders(bs.Plan, bs.Sources.Headers)
	bs.Report.Headers = placed
	if err != nil {
		bs.Report.HeaderFailures = unplaced(bs.Sources.Headers, placed)
	}
	return err
}

// unplaced returns the headers whose base name is missing from placed.
func unplaced(headers, placed []string) []string {
	done := make(map[string]struct{}, len(placed))
	for _, p := range placed {
		done[filepath.Base(p)] = struct{}{}
	}
	var out []string
	for _, h := range headers {
		if _, ok := done[filepath.Base(h)]; !ok {
			out = append(out, h)
		}
	}
	return out
}
