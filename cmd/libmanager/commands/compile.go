package commands

import (
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/libmanager/internal/config"
	"git.home.luguber.info/inful/libmanager/internal/logfields"
	"git.home.luguber.info/inful/libmanager/internal/metrics"
	"git.home.luguber.info/inful/libmanager/internal/pipeline"
	"git.home.luguber.info/inful/libmanager/internal/request"
)

// CompileCmd implements the 'compile' command.
type CompileCmd struct {
	Dir      string   `arg:"" name:"dir" help:"Directory holding the library's .c and .h files"`
	Homebrew []string `name:"homebrew" sep:"none" placeholder:"PKG" help:"Homebrew package include path relative to --homebrew-root (repeatable, also -hb)"`

	CC           string `name:"cc" env:"CC" help:"C compiler" default:"${default_cc}"`
	AR           string `name:"ar" env:"AR" help:"Static archiver" default:"${default_ar}"`
	WorkDir      string `name:"work-dir" help:"Directory the tools run in and outputs are placed under" default:"${default_work_dir}"`
	LibDir       string `name:"lib-dir" help:"Archive destination, relative to --work-dir; must exist" default:"${default_lib_dir}"`
	IncludeDir   string `name:"include-dir" help:"Header destination root, relative to --work-dir" default:"${default_include_dir}"`
	HomebrewRoot string `name:"homebrew-root" help:"Base directory for --homebrew packages" default:"${default_homebrew_root}"`
	DryRun       bool   `name:"dry-run" help:"Print the derived plan and commands as YAML without running anything"`
	MetricsFile  string `name:"metrics-file" help:"Write Prometheus metrics in text format to this file after the run"`
}

// ToolchainConfig assembles the toolchain configuration from flags.
func (c *CompileCmd) ToolchainConfig() config.ToolchainConfig {
	return config.ToolchainConfig{
		Compiler:     c.CC,
		Archiver:     c.AR,
		WorkDir:      c.WorkDir,
		LibDir:       c.LibDir,
		IncludeRoot:  c.IncludeDir,
		HomebrewRoot: c.HomebrewRoot,
	}.WithDefaults()
}

func (c *CompileCmd) Run(g *Global, _ *CLI) error {
	cfg := c.ToolchainConfig()
	req, err := request.New(c.Dir, c.Homebrew, cfg.HomebrewRoot)
	if err != nil {
		return err
	}

	var prom *metrics.PrometheusRecorder
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if c.MetricsFile != "" {
		prom = metrics.NewPrometheusRecorder(nil)
		recorder = prom
	}

	builder := pipeline.NewBuilder(cfg, g.Runner).
		WithStderr(g.stderr()).
		WithRecorder(recorder)

	if c.DryRun {
		plan, err := builder.Plan(req)
		if err != nil {
			return err
		}
		return writeYAML(g.stdout(), plan)
	}

	_, err = builder.Run(g.runContext(), req)
	if prom != nil {
		if werr := prom.WriteTextfile(c.MetricsFile); werr != nil {
			slog.Warn("Failed to write metrics file", logfields.Path(c.MetricsFile), logfields.Error(werr))
		} else {
			slog.Debug("Wrote metrics file", logfields.Path(c.MetricsFile))
		}
	}
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}
