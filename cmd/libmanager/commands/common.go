package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/libmanager/internal/config"
	lmerrors "git.home.luguber.info/inful/libmanager/internal/errors"
	"git.home.luguber.info/inful/libmanager/internal/toolchain"
	"git.home.luguber.info/inful/libmanager/internal/version"
)

// Global carries process-wide state into every command.
type Global struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	// Runner executes compiler and archiver; nil runs the real binaries.
	Runner toolchain.ProcessRunner
}

func (g *Global) runContext() context.Context {
	if g == nil || g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}

func (g *Global) stdout() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Global) stderr() io.Writer {
	if g == nil || g.Stderr == nil {
		return os.Stderr
	}
	return g.Stderr
}

// CLI definition & global flags.
type CLI struct {
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogLevel  string           `name:"log-level" env:"LIBMANAGER_LOG_LEVEL" help:"Log level (debug|info|warn|error)" default:"info"`
	LogFormat string           `name:"log-format" help:"Log output format (text|json)" enum:"text,json" default:"text"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Compile CompileCmd `cmd:"" aliases:"c" help:"Compile a directory of C sources into a static library"`
}

// AfterApply runs after flag parsing; setup logging once on the global stderr.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	slog.SetDefault(NewLogger(g.stderr(), c.Verbose, c.LogLevel, c.LogFormat))
	return nil
}

// NewLogger builds the process logger. Verbose forces debug level.
func NewLogger(w io.Writer, verbose bool, level, format string) *slog.Logger {
	lvl := config.NormalizeLogLevel(level).SlogLevel()
	if verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if config.NormalizeLogFormat(format) == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Vars exposes defaults to flag tags as ${name}.
func Vars() kong.Vars {
	return kong.Vars{
		"version":               version.String(),
		"default_cc":            config.DefaultCompiler,
		"default_ar":            config.DefaultArchiver,
		"default_work_dir":      config.DefaultWorkDir,
		"default_lib_dir":       config.DefaultLibDir,
		"default_include_dir":   config.DefaultIncludeRoot,
		"default_homebrew_root": config.DefaultHomebrewRoot,
	}
}

// NormalizeArgs rewrites the two-letter "-hb" spelling to "--homebrew";
// single-dash flags can only carry one letter. Arguments after "--" are kept.
func NormalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		switch {
		case arg == "-hb":
			arg = "--homebrew"
		case strings.HasPrefix(arg, "-hb="):
			arg = "--homebrew=" + strings.TrimPrefix(arg, "-hb=")
		}
		out = append(out, arg)
	}
	return out
}

// Parse builds the command line parser and parses args. Every parse failure
// is reported as invalid_arguments before any command runs. g is bound for
// hooks and commands; nil uses the process streams.
func Parse(g *Global, args []string, options ...kong.Option) (*CLI, *kong.Context, error) {
	if g == nil {
		g = &Global{}
	}
	cli := &CLI{}
	opts := append([]kong.Option{
		kong.Name("libmanager"),
		kong.Description("Compile a directory of C sources into a static library and publish its headers."),
		kong.Writers(g.stdout(), g.stderr()),
		kong.Bind(g),
		Vars(),
	}, options...)
	parser, err := kong.New(cli, opts...)
	if err != nil {
		return nil, nil, lmerrors.InternalError("build command line parser", err)
	}
	kctx, err := parser.Parse(NormalizeArgs(args))
	if err != nil {
		return nil, nil, lmerrors.WrapInvalidArguments(err)
	}
	return cli, kctx, nil
}

// Execute parses args, runs the selected command and returns the process
// exit code. Failures are rendered to g.Stderr.
func Execute(g *Global, args []string, options ...kong.Option) int {
	cli, kctx, err := Parse(g, args, options...)
	if err != nil {
		return lmerrors.NewCLIErrorAdapter(false, slog.Default()).WithOutput(g.stderr()).Report(err)
	}
	adapter := lmerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).WithOutput(g.stderr())
	if err := kctx.Run(cli); err != nil {
		return adapter.Report(err)
	}
	return 0
}
