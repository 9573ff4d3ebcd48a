// Package discovery scans a library source directory for C sources and headers.
//
// Only the immediate entries of the directory are considered; sources in
// subdirectories are never compiled.
package discovery

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lmerrors "git.home.luguber.info/inful/libmanager/internal/errors"
	"git.home.luguber.info/inful/libmanager/internal/logfields"
)

const (
	SourceExt = ".c"
	HeaderExt = ".h"
)

// SourceSet partitions a directory listing into compilable sources and headers.
// Both lists hold paths joined onto the scanned directory, sorted by file name.
type SourceSet struct {
	Sources []string `yaml:"sources"`
	Headers []string `yaml:"headers"`
}

// Empty reports whether nothing was found.
func (s SourceSet) Empty() bool {
	return len(s.Sources) == 0 && len(s.Headers) == 0
}

// Discover lists dir and classifies every non-directory entry by exact suffix.
// Entries matching neither suffix are ignored.
func Discover(dir string) (SourceSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return SourceSet{}, lmerrors.DirectoryUnreadable(dir, err)
	}

	// os.ReadDir already sorts by name; sort again so the order does not hinge on that.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var set SourceSet
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, SourceExt):
			set.Sources = append(set.Sources, filepath.Join(dir, name))
		case strings.HasSuffix(name, HeaderExt):
			set.Headers = append(set.Headers, filepath.Join(dir, name))
		}
	}

	slog.Debug("Discovered library sources",
		logfields.SourceDir(dir),
		slog.Int("sources", len(set.Sources)),
		slog.Int("headers", len(set.Headers)))
	return set, nil
}
