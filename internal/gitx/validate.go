package gitx

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// allowedProtocols defines the git URL protocols permitted for acquisition.
var allowedProtocols = map[string]bool{
	"https": true,
	"git":   true,
	"ssh":   true,
}

// ValidateSourceURL validates that a canonical source URL uses an allowed
// protocol. file:// and plain local paths are rejected: a canonical source
// is by definition remote.
func ValidateSourceURL(rawURL string) error {
	// SSH shorthand (git@host:owner/repo.git) has no scheme.
	if strings.HasPrefix(rawURL, "git@") {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !allowedProtocols[scheme] {
		return fmt.Errorf("protocol %q not allowed; must be https, git, or ssh", scheme)
	}
	return nil
}

// ValidateLocalPath ensures a unit's local path stays inside the workspace
// root after cleaning. Guards remediation's RemoveAll against manifest
// entries that point outside the tree.
func ValidateLocalPath(workspace, path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	if workspace == "" {
		return nil
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(workspace, full)
	}
	absPath, err := filepath.Abs(full)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	absBase, err := filepath.Abs(filepath.Clean(workspace))
	if err != nil {
		return fmt.Errorf("invalid workspace path: %w", err)
	}
	if absPath != absBase && !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path must be within %s", absBase)
	}
	return nil
}
