package resolve

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/buildwatch/internal/logfields"
)

// Package is a resolved build tool.
type Package struct {
	Name string
	// Dir is the package directory; empty for a bundled package.
	Dir string
	// Manifest is nil for a bundled package.
	Manifest *Manifest
	// Bundled is true when no project manifest declared the package.
	Bundled bool
	// Executable is the absolute path of the tool's entry point.
	Executable string
}

// FindPackage searches upward from fspath for a package.json declaring pkg
// and returns the package directory it resolves to.
func FindPackage(fspath, pkg string) (string, bool) {
	if abs, err := filepath.Abs(fspath); err == nil {
		fspath = abs
	}
	root := filepath.VolumeName(fspath) + string(filepath.Separator)
	dir := fspath
	for {
		manifestPath, err := FindManifest(dir)
		if err != nil {
			return "", false
		}
		m, err := ReadManifest(manifestPath)
		if err == nil && m.Declares(pkg) {
			return moduleDir(filepath.Dir(manifestPath), pkg)
		}
		parent := filepath.Dir(filepath.Dir(manifestPath))
		if parent == root || parent == filepath.Dir(manifestPath) {
			return "", false
		}
		dir = parent
	}
}

// moduleDir looks for node_modules/pkg from basedir upward.
func moduleDir(basedir, pkg string) (string, bool) {
	dir := basedir
	for {
		candidate := filepath.Join(dir, "node_modules", pkg)
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// LocalPackage resolves pkg for the project at fspath. A package found in the
// project but without a usable entry point is an error; a package the project
// does not declare falls back to the bundled executable named pkg on PATH.
func LocalPackage(fspath, pkg string) (*Package, error) {
	if dir, ok := FindPackage(fspath, pkg); ok {
		resolved, err := load(dir, pkg)
		if err != nil {
			return nil, ferrors.ResolveError("Failed to load "+pkg+" from "+dir).
				WithCause(err).
				WithContext("package", pkg).
				Build()
		}
		slog.Debug("Resolved local package", logfields.Path(resolved.Executable), slog.String("package", pkg))
		return resolved, nil
	}
	return bundled(pkg)
}

func load(dir, pkg string) (*Package, error) {
	m, err := ReadManifest(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	exe := ""
	if rel, ok := m.Executable(pkg); ok {
		exe = filepath.Join(dir, rel)
	} else {
		// node_modules/.bin sits next to the package directory (or its scope).
		binDir := filepath.Join(nodeModulesOf(dir), ".bin")
		exe = filepath.Join(binDir, filepath.Base(pkg))
	}
	if _, err := os.Stat(exe); err != nil {
		return nil, err
	}
	return &Package{Name: pkg, Dir: dir, Manifest: m, Executable: exe}, nil
}

func nodeModulesOf(dir string) string {
	for d := dir; ; d = filepath.Dir(d) {
		if filepath.Base(d) == "node_modules" {
			return d
		}
		if filepath.Dir(d) == d {
			return filepath.Dir(dir)
		}
	}
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

func bundled(pkg string) (*Package, error) {
	exe, err := lookPath(filepath.Base(pkg))
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = fs.ErrNotExist
		}
		return nil, ferrors.ResolveError("cannot find "+pkg+" in the project or on PATH").
			WithCause(err).
			WithContext("package", pkg).
			Build()
	}
	return &Package{Name: pkg, Bundled: true, Executable: exe}, nil
}
