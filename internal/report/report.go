// Package report assembles and renders the outcome of a verification run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"preflight/internal/unit"
)

// Report is the complete outcome of one verification run. Results preserve
// the input unit order regardless of how the run was scheduled internally.
type Report struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Results    []unit.Result `json:"results"`
	Ok         bool          `json:"ok"`
}

// New creates an empty report stamped with a fresh run ID.
func New() *Report {
	return &Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the finish time and computes the aggregate verdict: ok iff
// every unit ended Present or Remediated.
func (r *Report) Finish() {
	r.FinishedAt = time.Now().UTC()
	r.Ok = true
	for _, res := range r.Results {
		if !res.Status.Ok() {
			r.Ok = false
			return
		}
	}
}

// Failing returns the results whose status is not a terminal success.
func (r *Report) Failing() []unit.Result {
	var failing []unit.Result
	for _, res := range r.Results {
		if !res.Status.Ok() {
			failing = append(failing, res)
		}
	}
	return failing
}

// Duration returns the wall-clock time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// WriteJSON emits the machine-readable report for pipelines.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
