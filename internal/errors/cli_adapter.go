package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

// NewCLIErrorAdapter creates a new CLI error adapter writing diagnostics to stderr.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
	}
}

// WithOutput redirects the diagnostic line (used by tests).
func (a *CLIErrorAdapter) WithOutput(w io.Writer) *CLIErrorAdapter {
	if w != nil {
		a.out = w
	}
	return a
}

// ExitCodeFor determines the exit code for an error. Failure kinds are not
// distinguished: every failure exits with 1.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	if lme, ok := As(err); ok {
		return a.formatLibManager(lme)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatLibManager formats a LibManagerError for display.
func (a *CLIErrorAdapter) formatLibManager(err *LibManagerError) string {
	if a.verbose {
		return err.Error()
	}

	switch err.Category {
	case CategoryInvalidArguments:
		if err.Cause != nil {
			return fmt.Sprintf("[ERROR] %s: %v", err.Message, err.Cause)
		}
		return "[ERROR] " + err.Message
	case CategoryToolchainExecution:
		// stderr of the failing tool has already been forwarded verbatim
		return fmt.Sprintf("[ERROR] %s: %v exited with status %v", err.Message, err.Context["tool"], err.Context["exit_code"])
	default:
		if err.Cause != nil {
			return fmt.Sprintf("[ERROR] %s: %s: %v", err.Category, err.Message, err.Cause)
		}
		return fmt.Sprintf("[ERROR] %s: %s", err.Category, err.Message)
	}
}

// Report logs the error where appropriate, prints the diagnostic line and
// returns the exit code. It never exits the process itself.
func (a *CLIErrorAdapter) Report(err error) int {
	if err == nil {
		return 0
	}

	if a.shouldLog(err) {
		a.logError(err)
	}

	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	return a.ExitCodeFor(err)
}

// shouldLog determines if an error should be logged in addition to the diagnostic line.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	// unclassified errors report as internal
	return GetCategory(err) == CategoryInternal
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	if lme, ok := As(err); ok {
		attrs := []slog.Attr{
			slog.String("category", string(lme.Category)),
			slog.String("severity", string(lme.Severity)),
		}
		for k, v := range lme.Context {
			if k == "stderr" {
				continue
			}
			attrs = append(attrs, slog.Any(k, v))
		}
		if lme.Cause != nil {
			attrs = append(attrs, slog.String("error", lme.Cause.Error()))
		}
		a.logger.LogAttrs(context.Background(), a.slogLevelFromSeverity(lme.Severity), lme.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromSeverity converts LibManagerError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
