// Package gitx is the git-backed acquisition transport. All git access
// shells out to the git binary with context-bound commands; nothing here
// depends on the verification engine.
package gitx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"preflight/internal/unit"
	"preflight/internal/verifier"
)

// Transport implements verifier.Transport (and verifier.RefProber) on top
// of the git CLI and the local filesystem.
type Transport struct {
	logger *zap.Logger
}

// New creates a git transport. A nil logger disables logging.
func New(logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{logger: logger}
}

// Exists reports whether the local path exists.
func (t *Transport) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsEmpty reports whether an existing directory has zero entries.
func (t *Transport) IsEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return len(entries) == 0, nil
}

// ResolveRef reports whether ref resolves to a commit in the local copy.
// A git exit status means "not resolvable" (including a corrupted or
// non-repository directory, which remediation can replace); only a failure
// to run git at all is an error.
func (t *Transport) ResolveRef(ctx context.Context, localPath, ref string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--quiet", "--verify", ref+"^{commit}")
	cmd.Dir = localPath
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("failed to run git rev-parse: %w", err)
	}
	return true, nil
}

// Acquire clones source into path. depth > 0 requests a shallow clone;
// 0 fetches full history. A non-empty ref aims a shallow clone with
// --branch so pinned tags and branches land in the shallow history; a
// commit-ish that --branch cannot fetch falls back to a full-history
// clone. The destination must not exist.
func (t *Transport) Acquire(ctx context.Context, source, path, ref string, depth int) error {
	if err := ValidateSourceURL(source); err != nil {
		return fmt.Errorf("invalid canonical source %q: %w", source, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: creating parent of %s: %v", verifier.ErrFilesystem, path, err)
	}

	t.logger.Debug("acquiring unit", zap.String("source", source),
		zap.String("path", path), zap.String("ref", ref), zap.Int("depth", depth))

	err := t.clone(ctx, cloneArgs(source, path, ref, depth))
	if err != nil && ctx.Err() == nil && depth > 0 && ref != "" && isRemoteRefMissing(err) {
		// --branch only fetches branches and tags. A pinned commit id needs
		// the full history, so retry once without the shallow aim.
		t.logger.Debug("shallow aimed clone refused, retrying with full history",
			zap.String("source", source), zap.String("ref", ref))
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return fmt.Errorf("%w: clearing %s before full clone: %v", verifier.ErrFilesystem, path, rmErr)
		}
		err = t.clone(ctx, cloneArgs(source, path, "", 0))
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (t *Transport) clone(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return classifyCloneFailure(err, string(output))
	}
	return nil
}

// cloneArgs builds the git clone argument list. A ref only aims shallow
// clones: full history contains every ref already.
func cloneArgs(source, path, ref string, depth int) []string {
	args := []string{"clone"}
	if depth > 0 {
		args = append(args, "--depth", strconv.Itoa(depth))
		if ref != "" {
			args = append(args, "--branch", ref)
		}
	}
	return append(args, source, path)
}

// Remove discards the local copy.
func (t *Transport) Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("%w: removing %s: %v", verifier.ErrFilesystem, path, err)
	}
	return nil
}

// RemoteHasRef asks the canonical source whether it serves ref, without
// fetching content. Implements verifier.RefProber.
func (t *Transport) RemoteHasRef(ctx context.Context, source, ref string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-remote", "--exit-code", source, ref, ref+"^{}")
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		// ls-remote --exit-code exits 2 when no matching refs exist.
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 2 {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v: %s", verifier.ErrTransportUnreachable, err,
			strings.TrimSpace(string(output)))
	}
	return true, nil
}

// CloneHint returns the manual command an operator can run to remediate
// the unit by hand. Printed under failing units in the report.
func CloneHint(u unit.ContentUnit, depth int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "rm -rf %s && git clone", u.LocalPath)
	if depth > 0 {
		fmt.Fprintf(&b, " --depth %d", depth)
		if u.ExpectedRef != "" {
			fmt.Fprintf(&b, " --branch %s", u.ExpectedRef)
		}
	}
	fmt.Fprintf(&b, " %s %s", u.CanonicalSource, u.LocalPath)
	return b.String()
}

// isRemoteRefMissing reports whether a clone failed because --branch could
// not find the requested ref on the remote (for example a pinned commit
// id, which --branch never fetches).
func isRemoteRefMissing(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not find remote branch") ||
		(strings.Contains(msg, "remote branch") && strings.Contains(msg, "not found"))
}

// classifyCloneFailure maps git clone output onto the verifier's error
// taxonomy so diagnostics distinguish unreachable transports from sources
// that reject the request. A "repository not found" response counts as
// failing to reach the canonical source; whether the expected ref exists
// there is a separate question answered by RemoteHasRef.
func classifyCloneFailure(err error, output string) error {
	out := strings.ToLower(output)
	switch {
	case strings.Contains(out, "could not resolve host"),
		strings.Contains(out, "connection refused"),
		strings.Contains(out, "connection timed out"),
		strings.Contains(out, "operation timed out"),
		strings.Contains(out, "authentication failed"),
		strings.Contains(out, "could not read username"),
		strings.Contains(out, "repository not found"),
		strings.Contains(out, "unable to access"):
		return fmt.Errorf("%w: %s", verifier.ErrTransportUnreachable, firstLine(output))
	default:
		return fmt.Errorf("git clone failed: %w: %s", err, firstLine(output))
	}
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return strings.TrimSpace(s)
}
