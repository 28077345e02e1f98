// Package assets resolves static file paths, preferring content-hashed
// names from a build manifest so they can be cached as immutable.
package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const manifestFile = "manifest.json"

// Manifest maps logical asset paths such as "css/styles.css" to their
// hashed file names under the static directory.
type Manifest struct {
	mu        sync.RWMutex
	assets    map[string]string
	staticDir string
}

func NewManifest(staticDir string) *Manifest {
	return &Manifest{
		assets:    make(map[string]string),
		staticDir: staticDir,
	}
}

// Load reads manifest.json from the static directory. A missing manifest
// is not an error; unhashed paths are served instead.
func (m *Manifest) Load() error {
	path := filepath.Join(m.staticDir, manifestFile)

	// #nosec G304 -- path is built from configuration, not user input
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		m.replace(map[string]string{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading asset manifest: %w", err)
	}

	assets := make(map[string]string)
	if err := json.Unmarshal(data, &assets); err != nil {
		return fmt.Errorf("parsing asset manifest %s: %w", path, err)
	}
	m.replace(assets)
	return nil
}

func (m *Manifest) replace(assets map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets = assets
}

// Path returns the URL for a logical asset path, hashed when the manifest
// lists it. A nil Manifest returns the unhashed URL.
func (m *Manifest) Path(name string) string {
	name = strings.TrimPrefix(name, "/")
	if m == nil {
		return "/static/" + name
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if hashed, ok := m.assets[name]; ok {
		return "/static/" + hashed
	}
	return "/static/" + name
}
