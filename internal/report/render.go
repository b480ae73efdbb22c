package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"preflight/internal/unit"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	fixedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	statusWidth = 14
)

// RenderOptions control the human-readable rendering.
type RenderOptions struct {
	// Color enables ANSI styling. Off for pipes and --no-color.
	Color bool

	// Hint, when set, produces the manual remediation command printed under
	// each failing unit. Diagnostics must be actionable, not descriptive.
	Hint func(unit.ContentUnit) string
}

// Render writes one line per unit plus an aggregate verdict line.
func Render(w io.Writer, r *Report, opts RenderOptions) {
	for _, res := range r.Results {
		fmt.Fprintf(w, "%s  %s", styleStatus(res.Status, opts.Color), res.Unit.Name)
		if res.Diagnostic != "" {
			fmt.Fprintf(w, "  %s", maybeDim(res.Diagnostic, opts.Color))
		}
		fmt.Fprintln(w)

		if !res.Status.Ok() && opts.Hint != nil {
			if hint := opts.Hint(res.Unit); hint != "" {
				fmt.Fprintf(w, "%s\n", maybeDim("    fix: "+hint, opts.Color))
			}
		}
	}

	verdict := "ok"
	if !r.Ok {
		verdict = "FAILED"
	}
	fmt.Fprintf(w, "%d unit(s) verified in %s: %s\n",
		len(r.Results), r.Duration().Round(time.Millisecond), verdict)
}

func styleStatus(s unit.Status, color bool) string {
	label := fmt.Sprintf("%-*s", statusWidth, "["+string(s)+"]")
	if !color {
		return label
	}
	switch s {
	case unit.StatusPresent:
		return okStyle.Render(label)
	case unit.StatusRemediated:
		return fixedStyle.Render(label)
	default:
		return failStyle.Render(label)
	}
}

func maybeDim(s string, color bool) string {
	if !color {
		return s
	}
	return dimStyle.Render(s)
}
