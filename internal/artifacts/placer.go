package artifacts

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/libmanager/internal/config"
	lmerrors "git.home.luguber.info/inful/libmanager/internal/errors"
	"git.home.luguber.info/inful/libmanager/internal/logfields"
)

// Placer moves build outputs into the canonical layout below the work
// directory and removes intermediate object files.
type Placer struct {
	workDir string
}

// NewPlacer creates a placer rooted at cfg.WorkDir.
func NewPlacer(cfg config.ToolchainConfig) *Placer {
	return &Placer{workDir: cfg.WorkDir}
}

func (p *Placer) path(rel string) string {
	return filepath.Join(p.workDir, rel)
}

// CleanupObjects removes every *.o file directly inside the work directory,
// not only the ones this run produced. It is best-effort: failures are
// logged and never returned.
func (p *Placer) CleanupObjects() []string {
	entries, err := os.ReadDir(p.workDir)
	if err != nil {
		slog.Warn("Cannot list work directory for object cleanup", logfields.Dir(p.workDir), logfields.Error(err))
		return nil
	}

	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ObjectExt) {
			continue
		}
		if err := os.Remove(p.path(name)); err != nil {
			slog.Warn("Failed to remove object file", logfields.Path(name), logfields.Error(err))
			continue
		}
		removed = append(removed, name)
	}
	slog.Debug("Removed object files", logfields.Count(len(removed)))
	return removed
}

// RelocateArchive renames the archive from the work directory into the lib
// directory. The lib directory must already exist.
func (p *Placer) RelocateArchive(plan Plan) error {
	src, dst := p.path(plan.ArchiveName), p.path(plan.ArchiveDest)
	if err := os.Rename(src, dst); err != nil {
		return lmerrors.ArtifactPlacementFailure("rename", plan.ArchiveDest, err)
	}
	slog.Info("Placed library archive", logfields.Path(plan.ArchiveName), logfields.Dest(plan.ArchiveDest))
	return nil
}

// PlaceHeaders creates the include directory and copies every header into it.
// A header that cannot be copied is logged and skipped so the remaining ones
// are still placed; the run is then failed with a summary error. The returned
// slice lists the headers that were placed, relative to the work directory.
func (p *Placer) PlaceHeaders(plan Plan, headers []string) ([]string, error) {
	if err := os.MkdirAll(p.path(plan.IncludeDir), 0o750); err != nil {
		return nil, lmerrors.ArtifactPlacementFailure("mkdir", plan.IncludeDir, err)
	}

	placed := make([]string, 0, len(headers))
	var failures []error
	for _, header := range headers {
		rel := filepath.Join(plan.IncludeDir, filepath.Base(header))
		if err := CopyFile(header, p.path(rel)); err != nil {
			slog.Warn("Failed to copy header", logfields.Path(header), logfields.Dest(rel), logfields.Error(err))
			failures = append(failures, lmerrors.HeaderCopyFailure(header, err))
			continue
		}
		placed = append(placed, rel)
	}

	if len(failures) > 0 {
		return placed, lmerrors.HeadersIncomplete(len(failures), errors.Join(failures...))
	}
	slog.Info("Placed headers", logfields.Dest(plan.IncludeDir), logfields.Count(len(placed)))
	return placed, nil
}
