package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"preflight/internal/gitx"
	"preflight/internal/manifest"
	"preflight/internal/report"
	"preflight/internal/unit"
	"preflight/internal/verifier"
)

var (
	checkOnly   bool
	strict      bool
	jobs        int
	unitTimeout time.Duration
	jsonOutput  bool
	reportFile  string
)

// verifyCmd checks the configured units and remediates failing ones
var verifyCmd = &cobra.Command{
	Use:   "verify [unit...]",
	Short: "Verify content units, re-acquiring broken ones",
	Long: `Verifies each named unit (default: all units in the manifest): the local
path must exist, be non-empty, and resolve the expected ref if one is set.

Failing units get exactly one remediation attempt: the local copy is
DISCARDED and re-acquired from the canonical source. Do not run without
--check-only if local modifications under a unit path must survive.

Exits 0 when every unit ends up present or remediated, 1 otherwise.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&checkOnly, "check-only", false, "report only; never discard or re-acquire local state")
	verifyCmd.Flags().BoolVar(&strict, "strict", false, "exit 1 when any unit needed remediation, even if it succeeded")
	verifyCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "units verified concurrently (default: manifest setting)")
	verifyCmd.Flags().DurationVar(&unitTimeout, "timeout", 0, "per-unit transport timeout (default: manifest setting)")
	verifyCmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the report as JSON on stdout")
	verifyCmd.Flags().StringVar(&reportFile, "report-file", "", "also write the JSON report to this file")
}

func runVerify(cmd *cobra.Command, args []string) error {
	m, units, err := loadUnits(args)
	if err != nil {
		return err
	}

	opts := verifier.Options{
		AllowRemediation: !checkOnly,
		Jobs:             m.Defaults.Jobs,
		UnitTimeout:      m.GetTimeout(),
		CloneDepth:       m.Defaults.CloneDepth,
	}
	if jobs > 0 {
		opts.Jobs = jobs
	}
	if unitTimeout > 0 {
		opts.UnitTimeout = unitTimeout
	}

	engine := verifier.New(gitx.New(logger), logger)
	rep, err := engine.Verify(cmd.Context(), units, opts)
	if err != nil {
		return err
	}

	if err := emitReport(rep, m.Defaults.CloneDepth); err != nil {
		return err
	}
	if !rep.Ok {
		return errVerificationFailed
	}
	if strict {
		for _, res := range rep.Results {
			if res.Status != unit.StatusPresent {
				return errVerificationFailed
			}
		}
	}
	return nil
}

// loadUnits loads the manifest, selects the requested units, and resolves
// their paths against the workspace root. Unit paths are validated to stay
// inside the workspace before anything destructive can touch them.
func loadUnits(names []string) (*manifest.Manifest, []unit.ContentUnit, error) {
	path := manifest.Resolve(manifestPath, workspace)
	m, err := manifest.Load(path)
	if err != nil {
		return nil, nil, err
	}

	selected, err := m.Select(names)
	if err != nil {
		return nil, nil, err
	}

	units := make([]unit.ContentUnit, len(selected))
	for i, u := range selected {
		if err := gitx.ValidateLocalPath(workspace, u.LocalPath); err != nil {
			return nil, nil, fmt.Errorf("unit %q: %w", u.Name, err)
		}
		if !filepath.IsAbs(u.LocalPath) {
			u.LocalPath = filepath.Join(workspace, u.LocalPath)
		}
		units[i] = u
	}

	logger.Debug("manifest loaded",
		zap.String("path", path),
		zap.Int("selected", len(units)))
	return m, units, nil
}

func emitReport(rep *report.Report, cloneDepth int) error {
	if jsonOutput {
		if err := report.WriteJSON(os.Stdout, rep); err != nil {
			return err
		}
	} else {
		report.Render(os.Stdout, rep, report.RenderOptions{
			Color: !noColor && isatty.IsTerminal(os.Stdout.Fd()),
			Hint: func(u unit.ContentUnit) string {
				return gitx.CloneHint(u, cloneDepth)
			},
		})
	}

	if reportFile != "" {
		f, err := os.Create(reportFile)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		if err := report.WriteJSON(f, rep); err != nil {
			return err
		}
		logger.Info("report written", zap.String("path", reportFile))
	}
	return nil
}
