package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"preflight/internal/unit"
)

func validManifest() *Manifest {
	m := Default()
	m.Units = []unit.ContentUnit{
		{Name: "assets", LocalPath: "vendor/assets", CanonicalSource: "https://example.com/org/assets.git", ExpectedRef: "v1.2.0"},
		{Name: "schemas", LocalPath: "vendor/schemas", CanonicalSource: "https://example.com/org/schemas.git"},
	}
	return m
}

func TestDefault(t *testing.T) {
	m := Default()
	if m.Version != 1 {
		t.Errorf("expected Version=1, got %d", m.Version)
	}
	if m.Defaults.CloneDepth != 1 {
		t.Errorf("expected CloneDepth=1, got %d", m.Defaults.CloneDepth)
	}
	if got := m.GetTimeout(); got != 2*time.Minute {
		t.Errorf("expected default timeout 2m, got %v", got)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preflight.yaml")

	m := validManifest()
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(loaded.Units))
	}
	if loaded.Units[0].ExpectedRef != "v1.2.0" {
		t.Errorf("expected ref v1.2.0, got %q", loaded.Units[0].ExpectedRef)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preflight.yaml")
	doc := `version: 1
defaults:
  timeout: 30s
  clone_depth: 2
units:
  - name: assets
    path: vendor/assets
    source: https://example.com/org/assets.git
    ref: main
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Defaults.CloneDepth != 2 {
		t.Errorf("expected CloneDepth=2, got %d", m.Defaults.CloneDepth)
	}
	if got := m.GetTimeout(); got != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", got)
	}
	// Jobs not set in the document falls back to the default.
	if m.Defaults.Jobs != 1 {
		t.Errorf("expected Jobs=1, got %d", m.Defaults.Jobs)
	}
}

func TestValidate(t *testing.T) {
	t.Run("no units", func(t *testing.T) {
		m := Default()
		if err := m.Validate(); err == nil {
			t.Fatal("expected error for empty unit list")
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		m := validManifest()
		m.Units[1].Name = m.Units[0].Name
		if err := m.Validate(); err == nil {
			t.Fatal("expected error for duplicate name")
		}
	})

	t.Run("duplicate path", func(t *testing.T) {
		m := validManifest()
		m.Units[1].LocalPath = "vendor/assets/"
		if err := m.Validate(); err == nil {
			t.Fatal("expected error for duplicate path")
		}
	})

	t.Run("missing source", func(t *testing.T) {
		m := validManifest()
		m.Units[0].CanonicalSource = ""
		if err := m.Validate(); err == nil {
			t.Fatal("expected error for missing source")
		}
	})

	t.Run("bad timeout", func(t *testing.T) {
		m := validManifest()
		m.Defaults.Timeout = "soon"
		if err := m.Validate(); err == nil {
			t.Fatal("expected error for bad timeout")
		}
	})
}

func TestSelect(t *testing.T) {
	m := validManifest()

	all, err := m.Select(nil)
	if err != nil {
		t.Fatalf("Select(nil) failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected all 2 units, got %d", len(all))
	}

	one, err := m.Select([]string{"schemas"})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(one) != 1 || one[0].Name != "schemas" {
		t.Fatalf("expected [schemas], got %v", one)
	}

	if _, err := m.Select([]string{"nope"}); err == nil {
		t.Fatal("expected error for unknown unit name")
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvManifestPath, "")

	if got := Resolve("explicit.yaml", "/ws"); got != "explicit.yaml" {
		t.Errorf("Resolve flag = %q", got)
	}
	if got := Resolve("", "/ws"); got != filepath.Join("/ws", DefaultFilename) {
		t.Errorf("Resolve default = %q", got)
	}

	t.Setenv(EnvManifestPath, "/etc/preflight.yaml")
	if got := Resolve("", "/ws"); got != "/etc/preflight.yaml" {
		t.Errorf("Resolve env = %q", got)
	}
}
