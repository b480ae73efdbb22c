// Package verifier implements the check / remediate / re-verify engine at
// the heart of preflight.
//
// Each unit is verified in isolation: presence first, then ref
// resolvability, then at most ONE destructive remediation (discard local
// state, shallow re-acquire, re-check). The engine never loops on network
// operations; a failed remediation is final for the run. Pure verification
// performs no filesystem mutation.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"preflight/internal/report"
	"preflight/internal/unit"
)

// Transport is the acquisition collaborator. Real runs use the git-backed
// implementation in internal/gitx; tests substitute fakes.
type Transport interface {
	// Exists reports whether the local path exists at all.
	Exists(path string) bool

	// IsEmpty reports whether an existing local path has zero entries.
	IsEmpty(path string) (bool, error)

	// ResolveRef reports whether ref is reachable from the local copy's
	// current history. It must not touch the network.
	ResolveRef(ctx context.Context, localPath, ref string) (bool, error)

	// Acquire fetches fresh content from source into path. A non-empty ref
	// is the ref the caller needs resolvable afterward; shallow transports
	// use it to aim the acquisition. depth > 0 requests shallow
	// acquisition. The path must not exist beforehand.
	Acquire(ctx context.Context, source, path, ref string, depth int) error

	// Remove discards the local copy at path.
	Remove(path string) error
}

// RefProber is an optional Transport upgrade. When a unit's ref is still
// unresolvable after re-acquisition, the engine uses it to tell a ref that
// is genuinely absent from the canonical source apart from one the shallow
// acquisition simply did not reach.
type RefProber interface {
	RemoteHasRef(ctx context.Context, source, ref string) (bool, error)
}

// Options tune one verification run.
type Options struct {
	// AllowRemediation permits the single destructive remediation attempt
	// per failing unit. Off means check-only: detected statuses stand.
	AllowRemediation bool

	// Jobs is the number of units verified concurrently. Values <= 1 run
	// sequentially.
	Jobs int

	// UnitTimeout bounds each unit's transport operations.
	UnitTimeout time.Duration

	// CloneDepth is the shallow acquisition depth used during remediation.
	// 0 means full history.
	CloneDepth int
}

func (o Options) withDefaults() Options {
	if o.Jobs < 1 {
		o.Jobs = 1
	}
	if o.UnitTimeout <= 0 {
		o.UnitTimeout = 2 * time.Minute
	}
	return o
}

// Engine verifies content units against a Transport.
type Engine struct {
	transport Transport
	logger    *zap.Logger
}

// New creates an engine. A nil logger disables logging.
func New(t Transport, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{transport: t, logger: logger}
}

// Verify checks every unit and returns a report covering all of them, in
// input order. Per-unit failures never surface as an error; the only error
// return is the configuration fault of an empty unit list.
//
// Cancelling ctx stops the run between units: finished units keep their
// results and unstarted ones are marked failed with a cancellation
// diagnostic.
func (e *Engine) Verify(ctx context.Context, units []unit.ContentUnit, opts Options) (*report.Report, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("no units to verify")
	}
	opts = opts.withDefaults()

	rep := report.New()
	results := make([]unit.Result, len(units))

	e.logger.Info("verification run started",
		zap.String("run_id", rep.RunID),
		zap.Int("units", len(units)),
		zap.Int("jobs", opts.Jobs),
		zap.Bool("remediation", opts.AllowRemediation))

	if opts.Jobs == 1 {
		for i, u := range units {
			if ctx.Err() != nil {
				results[i] = cancelledResult(u)
				continue
			}
			results[i] = e.verifyUnit(ctx, u, opts)
		}
	} else {
		eg := new(errgroup.Group)
		eg.SetLimit(opts.Jobs)
		for i, u := range units {
			eg.Go(func() error {
				if ctx.Err() != nil {
					results[i] = cancelledResult(u)
					return nil
				}
				results[i] = e.verifyUnit(ctx, u, opts)
				return nil
			})
		}
		// Workers never return errors; Wait is only a join point. The
		// results slice is index-addressed so the report keeps input order.
		_ = eg.Wait()
	}

	rep.Results = results
	rep.Finish()

	e.logger.Info("verification run finished",
		zap.String("run_id", rep.RunID),
		zap.Bool("ok", rep.Ok),
		zap.Duration("elapsed", rep.Duration()))
	return rep, nil
}

// verifyUnit runs the per-unit state machine: detect, optionally remediate
// once, re-detect.
func (e *Engine) verifyUnit(ctx context.Context, u unit.ContentUnit, opts Options) unit.Result {
	uctx, cancel := context.WithTimeout(ctx, opts.UnitTimeout)
	defer cancel()

	start := time.Now()
	status, diag := e.check(uctx, u)
	e.logger.Debug("unit checked",
		zap.String("unit", u.Name),
		zap.String("status", string(status)),
		zap.Duration("elapsed", time.Since(start)))

	if !status.NeedsRemediation() {
		return unit.Result{Unit: u, Status: status, Diagnostic: diag}
	}
	if !opts.AllowRemediation {
		return unit.Result{Unit: u, Status: status, Diagnostic: diag}
	}

	e.logger.Info("remediating unit",
		zap.String("unit", u.Name),
		zap.String("detected", string(status)),
		zap.String("source", u.CanonicalSource))

	if err := e.remediate(uctx, u, opts.CloneDepth); err != nil {
		return unit.Result{
			Unit:       u,
			Status:     unit.StatusFailed,
			Diagnostic: fmt.Sprintf("remediation of %s failed: %s", string(status), describe(err)),
		}
	}

	// Re-verify the fresh copy before declaring success.
	status, diag = e.check(uctx, u)
	if status == unit.StatusPresent {
		return unit.Result{
			Unit:       u,
			Status:     unit.StatusRemediated,
			Diagnostic: "re-acquired from " + u.CanonicalSource,
		}
	}

	if status == unit.StatusRefMismatch && u.ExpectedRef != "" {
		if prober, ok := e.transport.(RefProber); ok {
			if has, err := prober.RemoteHasRef(uctx, u.CanonicalSource, u.ExpectedRef); err == nil && !has {
				diag = fmt.Sprintf("%v: %q is absent from %s", ErrRefNotFound,
					u.ExpectedRef, u.CanonicalSource)
			}
		}
	}
	return unit.Result{
		Unit:       u,
		Status:     unit.StatusFailed,
		Diagnostic: "still failing after re-acquisition: " + diag,
	}
}

// check runs the non-mutating detection steps: presence, then ref
// resolvability. It reports Present with an empty diagnostic when clean.
func (e *Engine) check(ctx context.Context, u unit.ContentUnit) (unit.Status, string) {
	if !e.transport.Exists(u.LocalPath) {
		return unit.StatusMissing, fmt.Sprintf("%s does not exist", u.LocalPath)
	}

	empty, err := e.transport.IsEmpty(u.LocalPath)
	if err != nil {
		return unit.StatusFailed, fmt.Sprintf("cannot inspect %s: %v", u.LocalPath, err)
	}
	if empty {
		return unit.StatusEmpty, fmt.Sprintf("%s exists but has no entries", u.LocalPath)
	}

	if u.ExpectedRef == "" {
		return unit.StatusPresent, ""
	}

	resolvable, err := e.transport.ResolveRef(ctx, u.LocalPath, u.ExpectedRef)
	if err != nil {
		// Unqueryable local history counts as a mismatch: the copy is in a
		// state remediation can replace.
		return unit.StatusRefMismatch, fmt.Sprintf(
			"cannot resolve %q in %s: %v (canonical source: %s)",
			u.ExpectedRef, u.LocalPath, err, u.CanonicalSource)
	}
	if !resolvable {
		return unit.StatusRefMismatch, fmt.Sprintf(
			"%q not reachable from local copy at %s (canonical source: %s)",
			u.ExpectedRef, u.LocalPath, u.CanonicalSource)
	}
	return unit.StatusPresent, ""
}

// remediate discards the local copy and re-acquires it from the canonical
// source. Destructive: callers must not request remediation when local
// modifications need to survive.
func (e *Engine) remediate(ctx context.Context, u unit.ContentUnit, depth int) error {
	if e.transport.Exists(u.LocalPath) {
		if err := e.transport.Remove(u.LocalPath); err != nil {
			return fmt.Errorf("%w: discarding %s: %v", ErrFilesystem, u.LocalPath, err)
		}
	}
	if err := e.transport.Acquire(ctx, u.CanonicalSource, u.LocalPath, u.ExpectedRef, depth); err != nil {
		return err
	}
	return nil
}

func cancelledResult(u unit.ContentUnit) unit.Result {
	return unit.Result{
		Unit:       u,
		Status:     unit.StatusFailed,
		Diagnostic: "cancelled before verification",
	}
}

// describe renders a remediation error for the report, naming timeouts and
// cancellation explicitly so diagnostics stay actionable.
func describe(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%v (timeout)", ErrTransportUnreachable)
	case errors.Is(err, context.Canceled):
		return "cancelled mid-remediation"
	default:
		return err.Error()
	}
}
