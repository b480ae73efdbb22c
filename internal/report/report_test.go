package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/unit"
)

func sampleReport() *Report {
	r := New()
	r.Results = []unit.Result{
		{
			Unit:   unit.ContentUnit{Name: "assets", LocalPath: "vendor/assets", CanonicalSource: "https://x/assets.git"},
			Status: unit.StatusPresent,
		},
		{
			Unit:       unit.ContentUnit{Name: "schemas", LocalPath: "vendor/schemas", CanonicalSource: "https://x/schemas.git"},
			Status:     unit.StatusFailed,
			Diagnostic: "transport unreachable: dial tcp: connection refused",
		},
	}
	r.Finish()
	return r
}

func TestNewAssignsRunID(t *testing.T) {
	a, b := New(), New()
	require.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestFinishComputesVerdict(t *testing.T) {
	r := New()
	r.Results = []unit.Result{
		{Status: unit.StatusPresent},
		{Status: unit.StatusRemediated},
	}
	r.Finish()
	assert.True(t, r.Ok)
	assert.Empty(t, r.Failing())

	r.Results = append(r.Results, unit.Result{Status: unit.StatusMissing})
	r.Finish()
	assert.False(t, r.Ok)
	assert.Len(t, r.Failing(), 1)
}

func TestRenderPlain(t *testing.T) {
	r := sampleReport()

	var buf bytes.Buffer
	Render(&buf, r, RenderOptions{
		Hint: func(u unit.ContentUnit) string {
			return "git clone " + u.CanonicalSource + " " + u.LocalPath
		},
	})
	out := buf.String()

	assert.Contains(t, out, "[present]")
	assert.Contains(t, out, "assets")
	assert.Contains(t, out, "[failed]")
	assert.Contains(t, out, "transport unreachable")
	assert.Contains(t, out, "fix: git clone https://x/schemas.git vendor/schemas")
	assert.Contains(t, out, "2 unit(s) verified")
	assert.Contains(t, out, "FAILED")

	// Clean units get no hint line.
	assert.NotContains(t, out, "fix: git clone https://x/assets.git")
}

func TestRenderAllOk(t *testing.T) {
	r := New()
	r.Results = []unit.Result{{
		Unit:   unit.ContentUnit{Name: "assets"},
		Status: unit.StatusPresent,
	}}
	r.Finish()

	var buf bytes.Buffer
	Render(&buf, r, RenderOptions{})
	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), "ok"))
}

func TestWriteJSON(t *testing.T) {
	r := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.RunID, decoded.RunID)
	assert.False(t, decoded.Ok)
	require.Len(t, decoded.Results, 2)
	assert.Equal(t, unit.StatusFailed, decoded.Results[1].Status)
}
