// Package request builds the immutable CompileRequest the pipeline runs from.
package request

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	lmerrors "git.home.luguber.info/inful/libmanager/internal/errors"
)

// CompileRequest is the parsed form of `compile <dir> [--homebrew <pkg>]...`.
// It is built once and never mutated afterwards.
type CompileRequest struct {
	// SourceDir is the absolute, cleaned source directory.
	SourceDir string `yaml:"source_dir" validate:"required"`
	// Name is the base name of SourceDir; it names the archive and the include subdirectory.
	Name string `yaml:"name" validate:"required,ne=.,ne=/,ne=.."`
	// IncludePaths are extra compiler search paths in argument order.
	IncludePaths []string `yaml:"include_paths,omitempty" validate:"dive,required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// New resolves sourceDir and joins every homebrew package path onto
// homebrewRoot. It fails with an invalid_arguments error when the directory
// is empty or does not name a library.
func New(sourceDir string, homebrewPkgs []string, homebrewRoot string) (CompileRequest, error) {
	if sourceDir == "" {
		return CompileRequest{}, lmerrors.InvalidArguments("provide a directory to compile to a library")
	}
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return CompileRequest{}, lmerrors.WrapInvalidArguments(fmt.Errorf("resolve %s: %w", sourceDir, err))
	}

	req := CompileRequest{
		SourceDir: abs,
		Name:      filepath.Base(abs),
	}
	for _, pkg := range homebrewPkgs {
		if pkg == "" {
			return CompileRequest{}, lmerrors.InvalidArguments("--homebrew requires a relative package path")
		}
		req.IncludePaths = append(req.IncludePaths, HomebrewIncludePath(homebrewRoot, pkg))
	}

	if err := validate.Struct(req); err != nil {
		return CompileRequest{}, lmerrors.WrapInvalidArguments(fmt.Errorf("source directory %q: %w", sourceDir, err))
	}
	return req, nil
}

// HomebrewIncludePath resolves a package path such as "sdl2/2.28.5/include"
// against the homebrew cellar root.
func HomebrewIncludePath(root, pkg string) string {
	return filepath.Join(root, pkg)
}

// IncludeFlags renders the include search paths as compiler arguments, one
// "-I" token followed by the path for each entry.
func (r CompileRequest) IncludeFlags() []string {
	flags := make([]string, 0, 2*len(r.IncludePaths))
	for _, p := range r.IncludePaths {
		flags = append(flags, "-I", p)
	}
	return flags
}
