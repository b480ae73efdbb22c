// Package unit defines the content units preflight verifies and the
// status model their verification moves through.
package unit

import "fmt"

// ContentUnit is one external, independently versioned bundle of files
// that must be present and consistent before a build can proceed.
// A unit is immutable for the duration of a verification run; its
// identity is Name.
type ContentUnit struct {
	// Name identifies the unit in manifests, reports, and CLI arguments.
	Name string `json:"name" yaml:"name"`

	// LocalPath is where the unit's contents live in the workspace.
	LocalPath string `json:"path" yaml:"path"`

	// CanonicalSource is the authoritative remote the unit is acquired from.
	CanonicalSource string `json:"source" yaml:"source"`

	// ExpectedRef, when set, must be resolvable from the local copy's
	// history. Empty means any acquired content is acceptable.
	ExpectedRef string `json:"ref,omitempty" yaml:"ref,omitempty"`
}

// String returns "name (path)" for log lines.
func (u ContentUnit) String() string {
	return fmt.Sprintf("%s (%s)", u.Name, u.LocalPath)
}

// Status is the closed set of verification outcomes for a unit.
type Status string

const (
	// StatusPresent means the local copy exists, is non-empty, and the
	// expected ref (if any) resolves. Terminal success.
	StatusPresent Status = "present"

	// StatusMissing means the local path does not exist.
	StatusMissing Status = "missing"

	// StatusEmpty means the local path exists but contains no entries.
	StatusEmpty Status = "empty"

	// StatusRefMismatch means the local copy exists but the expected ref
	// is not resolvable from its current state.
	StatusRefMismatch Status = "ref-mismatch"

	// StatusRemediated means a failing unit was re-acquired from its
	// canonical source and re-verified clean. Terminal success.
	StatusRemediated Status = "remediated"

	// StatusFailed means verification failed and remediation either was
	// not attempted or did not produce a clean copy. Terminal failure.
	StatusFailed Status = "failed"
)

// Ok reports whether the status is a terminal success.
func (s Status) Ok() bool {
	return s == StatusPresent || s == StatusRemediated
}

// NeedsRemediation reports whether the status is a detected defect that a
// remediation attempt can act on.
func (s Status) NeedsRemediation() bool {
	switch s {
	case StatusMissing, StatusEmpty, StatusRefMismatch:
		return true
	}
	return false
}

// Result pairs a unit with its final status and a human-readable
// diagnostic. Diagnostic is empty for clean units.
type Result struct {
	Unit       ContentUnit `json:"unit"`
	Status     Status      `json:"status"`
	Diagnostic string      `json:"diagnostic,omitempty"`
}
