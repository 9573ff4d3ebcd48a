package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Defaults matching the conventional project layout and the ambient toolchain.
const (
	DefaultCompiler     = "gcc"
	DefaultArchiver     = "ar"
	DefaultWorkDir      = "."
	DefaultLibDir       = "lib"
	DefaultIncludeRoot  = "include"
	DefaultHomebrewRoot = "/opt/homebrew/Cellar"
)

// ToolchainConfig names the external tools and the output layout used by a
// compile run. LibDir and IncludeRoot are resolved against WorkDir, which is
// also where the compiler drops its object files.
type ToolchainConfig struct {
	Compiler     string `yaml:"compiler" validate:"required"`
	Archiver     string `yaml:"archiver" validate:"required"`
	WorkDir      string `yaml:"work_dir" validate:"required"`
	LibDir       string `yaml:"lib_dir" validate:"required,nefield=IncludeRoot"`
	IncludeRoot  string `yaml:"include_root" validate:"required"`
	HomebrewRoot string `yaml:"homebrew_root" validate:"required"`
}

// DefaultToolchainConfig returns the configuration used when no flag or
// environment variable overrides a value.
func DefaultToolchainConfig() ToolchainConfig {
	return ToolchainConfig{
		Compiler:     DefaultCompiler,
		Archiver:     DefaultArchiver,
		WorkDir:      DefaultWorkDir,
		LibDir:       DefaultLibDir,
		IncludeRoot:  DefaultIncludeRoot,
		HomebrewRoot: DefaultHomebrewRoot,
	}
}

// WithDefaults fills every empty field from DefaultToolchainConfig.
func (c ToolchainConfig) WithDefaults() ToolchainConfig {
	d := DefaultToolchainConfig()
	if c.Compiler == "" {
		c.Compiler = d.Compiler
	}
	if c.Archiver == "" {
		c.Archiver = d.Archiver
	}
	if c.WorkDir == "" {
		c.WorkDir = d.WorkDir
	}
	if c.LibDir == "" {
		c.LibDir = d.LibDir
	}
	if c.IncludeRoot == "" {
		c.IncludeRoot = d.IncludeRoot
	}
	if c.HomebrewRoot == "" {
		c.HomebrewRoot = d.HomebrewRoot
	}
	return c
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration with its struct tags.
func (c ToolchainConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid toolchain config: %w", err)
	}
	return nil
}
