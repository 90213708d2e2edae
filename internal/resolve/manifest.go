// Package resolve locates the build tool a project depends on.
//
// Resolution mirrors what the project's own package manager would load: the
// nearest package.json that declares the package wins, and the package is
// then looked up in node_modules directories from that manifest upward. When
// no manifest declares it, the bundled copy (an executable on PATH) is used.
package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// ManifestName is the file searched for when walking up the tree.
const ManifestName = "package.json"

// Manifest is the subset of package.json resolution needs.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Bin             json.RawMessage   `json:"bin"`
}

// Declares reports whether the manifest lists pkg as a dependency or dev dependency.
func (m *Manifest) Declares(pkg string) bool {
	if _, ok := m.Dependencies[pkg]; ok {
		return true
	}
	_, ok := m.DevDependencies[pkg]
	return ok
}

// Executable returns the bin entry called name, or the single bin entry when
// bin is a plain string. The path is relative to the package directory.
func (m *Manifest) Executable(name string) (string, bool) {
	if len(m.Bin) == 0 {
		return "", false
	}
	var single string
	if err := json.Unmarshal(m.Bin, &single); err == nil {
		return single, single != ""
	}
	var named map[string]string
	if err := json.Unmarshal(m.Bin, &named); err != nil {
		return "", false
	}
	if p, ok := named[name]; ok {
		return p, true
	}
	if len(named) == 1 {
		for _, p := range named {
			return p, true
		}
	}
	return "", false
}

// ReadManifest parses a package.json, tolerating comments and trailing commas.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}

// FindManifest returns the path of the nearest package.json at or above dir.
func FindManifest(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fs.ErrNotExist
		}
		dir = parent
	}
}
