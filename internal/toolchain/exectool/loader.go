// Package exectool drives a Node build tool through its command line: the
// tool's executable is resolved from the project, run with --json to collect
// stats, and rerun on source changes while a small HTTP server serves the
// output.
package exectool

import (
	"os"

	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/buildwatch/internal/resolve"
	"git.home.luguber.info/inful/buildwatch/internal/toolchain"
)

// Loader resolves an npm package providing the build tool.
type Loader struct {
	Package string
}

// NewLoader returns a loader for pkg.
func NewLoader(pkg string) *Loader {
	return &Loader{Package: pkg}
}

// Load resolves the package for the project at root.
func (l *Loader) Load(root string) (toolchain.Toolchain, error) {
	pkg, err := resolve.LocalPackage(root, l.Package)
	if err != nil {
		return nil, err
	}
	return &Toolchain{Package: pkg}, nil
}

// Toolchain builds compilers and dev servers around a resolved package.
type Toolchain struct {
	Package *resolve.Package
}

// NewCompiler checks that the build config file exists and returns a compiler.
func (t *Toolchain) NewCompiler(cfg toolchain.BuildConfig) (toolchain.Compiler, error) {
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		return nil, ferrors.FileSystemError("cannot read build config").
			WithCause(err).
			WithContext("config_path", cfg.ConfigPath).
			Build()
	}
	return NewCompiler(t.Package.Executable, cfg), nil
}

// NewDevServer wraps a compiler created by this toolchain.
func (t *Toolchain) NewDevServer(c toolchain.Compiler, cfg toolchain.BuildConfig) (toolchain.DevServer, error) {
	compiler, ok := c.(*Compiler)
	if !ok {
		return nil, ferrors.InternalError("dev server needs a compiler from the same toolchain").Build()
	}
	return NewDevServer(compiler, cfg), nil
}
