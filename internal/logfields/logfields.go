package logfields

import (
	"log/slog"
	"strings"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyResult     = "result"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyDest       = "dest"
	KeySourceDir  = "source_dir"
	KeyLibrary    = "library"
	KeyTool       = "tool"
	KeyArgs       = "args"
	KeyDir        = "dir"
	KeyExitCode   = "exit_code"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Result(r string) slog.Attr       { return slog.String(KeyResult, r) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Dest(p string) slog.Attr         { return slog.String(KeyDest, p) }
func SourceDir(d string) slog.Attr    { return slog.String(KeySourceDir, d) }
func Library(name string) slog.Attr   { return slog.String(KeyLibrary, name) }
func Tool(name string) slog.Attr      { return slog.String(KeyTool, name) }
func Dir(d string) slog.Attr          { return slog.String(KeyDir, d) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }

// Args renders an argument vector the way it would be typed in a shell.
func Args(args []string) slog.Attr { return slog.String(KeyArgs, strings.Join(args, " ")) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
