// Package artifacts derives where build outputs go and moves them there.
package artifacts

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/libmanager/internal/config"
)

const (
	ArchiveExt = ".a"
	ObjectExt  = ".o"
)

// Plan is the purely derived output layout of one compile run. All paths
// except the object and archive names are relative to the work directory.
type Plan struct {
	Library     string   `yaml:"library"`
	ArchiveName string   `yaml:"archive"`
	ObjectNames []string `yaml:"objects"`
	ArchiveDest string   `yaml:"archive_dest"`
	IncludeDir  string   `yaml:"include_dir"`
}

// NewPlan derives the layout for library name built from sources.
func NewPlan(name string, sources []string, cfg config.ToolchainConfig) Plan {
	archive := ArchiveName(name)
	objects := make([]string, 0, len(sources))
	for _, src := range sources {
		objects = append(objects, ObjectName(src))
	}
	return Plan{
		Library:     name,
		ArchiveName: archive,
		ObjectNames: objects,
		ArchiveDest: filepath.Join(cfg.LibDir, archive),
		IncludeDir:  filepath.Join(cfg.IncludeRoot, name),
	}
}

// ArchiveName replaces the extension of the library directory name with ".a".
func ArchiveName(name string) string {
	return withExt(filepath.Base(name), ArchiveExt)
}

// ObjectName is the file a compiler writes for source: its base name with
// the extension replaced by ".o".
func ObjectName(source string) string {
	return withExt(filepath.Base(source), ObjectExt)
}

func withExt(base, ext string) string {
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		// dotfile such as ".hidden": keep the whole name
		stem = base
	}
	return stem + ext
}
