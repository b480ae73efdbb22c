// Package manifest loads and validates the preflight.yaml manifest that
// declares the content units a workspace depends on.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"preflight/internal/unit"
)

// DefaultFilename is the manifest looked up in the workspace root when no
// explicit path is given.
const DefaultFilename = "preflight.yaml"

// EnvManifestPath overrides the manifest location when set.
const EnvManifestPath = "PREFLIGHT_MANIFEST"

// Manifest declares the content units of one workspace plus run defaults.
type Manifest struct {
	Version  int                `yaml:"version"`
	Defaults Defaults           `yaml:"defaults"`
	Units    []unit.ContentUnit `yaml:"units"`
}

// Defaults are run-level knobs every verification inherits unless
// overridden on the command line.
type Defaults struct {
	// Timeout bounds each unit's transport operations. Duration string.
	Timeout string `yaml:"timeout"`

	// CloneDepth is the shallow acquisition depth used during remediation.
	CloneDepth int `yaml:"clone_depth"`

	// Jobs is the verification concurrency. 1 means sequential.
	Jobs int `yaml:"jobs"`
}

// Default returns a manifest with sane run defaults and no units.
func Default() *Manifest {
	return &Manifest{
		Version: 1,
		Defaults: Defaults{
			Timeout:    "2m",
			CloneDepth: 1,
			Jobs:       1,
		},
	}
}

// Resolve picks the manifest path: explicit flag value, then the
// PREFLIGHT_MANIFEST environment variable, then preflight.yaml in the
// workspace root.
func Resolve(flagPath, workspace string) string {
	if flagPath != "" {
		return flagPath
	}
	if env := os.Getenv(EnvManifestPath); env != "" {
		return env
	}
	return filepath.Join(workspace, DefaultFilename)
}

// Load reads and validates a manifest from a YAML file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m := Default()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return m, nil
}

// Save writes the manifest to a YAML file, creating parent directories.
func (m *Manifest) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Validate checks the manifest for configuration errors. A bad manifest
// fails the whole invocation before any unit is touched.
func (m *Manifest) Validate() error {
	if len(m.Units) == 0 {
		return fmt.Errorf("no units configured")
	}
	if m.Defaults.CloneDepth < 0 {
		return fmt.Errorf("clone_depth must be >= 0, got %d", m.Defaults.CloneDepth)
	}
	if m.Defaults.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0, got %d", m.Defaults.Jobs)
	}
	if m.Defaults.Timeout != "" {
		if _, err := time.ParseDuration(m.Defaults.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", m.Defaults.Timeout, err)
		}
	}

	seenName := make(map[string]bool, len(m.Units))
	seenPath := make(map[string]bool, len(m.Units))
	for i, u := range m.Units {
		if strings.TrimSpace(u.Name) == "" {
			return fmt.Errorf("unit %d: name is required", i)
		}
		if strings.TrimSpace(u.LocalPath) == "" {
			return fmt.Errorf("unit %q: path is required", u.Name)
		}
		if strings.TrimSpace(u.CanonicalSource) == "" {
			return fmt.Errorf("unit %q: source is required", u.Name)
		}
		if seenName[u.Name] {
			return fmt.Errorf("duplicate unit name %q", u.Name)
		}
		clean := filepath.Clean(u.LocalPath)
		if seenPath[clean] {
			return fmt.Errorf("unit %q: path %s already used by another unit", u.Name, clean)
		}
		seenName[u.Name] = true
		seenPath[clean] = true
	}
	return nil
}

// GetTimeout returns the per-unit transport timeout as a duration.
func (m *Manifest) GetTimeout() time.Duration {
	d, err := time.ParseDuration(m.Defaults.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// Select returns the units matching the given names, or all units when
// names is empty. Unknown names are an error so that a typo in a pipeline
// never silently verifies nothing.
func (m *Manifest) Select(names []string) ([]unit.ContentUnit, error) {
	if len(names) == 0 {
		return m.Units, nil
	}

	byName := make(map[string]unit.ContentUnit, len(m.Units))
	for _, u := range m.Units {
		byName[u.Name] = u
	}

	selected := make([]unit.ContentUnit, 0, len(names))
	for _, name := range names {
		u, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown unit %q", name)
		}
		selected = append(selected, u)
	}
	return selected, nil
}
