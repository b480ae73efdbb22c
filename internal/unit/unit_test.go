package unit

import "testing"

func TestStatusOk(t *testing.T) {
	ok := []Status{StatusPresent, StatusRemediated}
	for _, s := range ok {
		if !s.Ok() {
			t.Errorf("Status(%q).Ok() = false, want true", s)
		}
	}

	failing := []Status{StatusMissing, StatusEmpty, StatusRefMismatch, StatusFailed}
	for _, s := range failing {
		if s.Ok() {
			t.Errorf("Status(%q).Ok() = true, want false", s)
		}
	}
}

func TestStatusNeedsRemediation(t *testing.T) {
	cases := map[Status]bool{
		StatusPresent:     false,
		StatusMissing:     true,
		StatusEmpty:       true,
		StatusRefMismatch: true,
		StatusRemediated:  false,
		StatusFailed:      false,
	}
	for s, want := range cases {
		if got := s.NeedsRemediation(); got != want {
			t.Errorf("Status(%q).NeedsRemediation() = %v, want %v", s, got, want)
		}
	}
}

func TestContentUnitString(t *testing.T) {
	u := ContentUnit{Name: "frontend-assets", LocalPath: "vendor/frontend-assets"}
	if got := u.String(); got != "frontend-assets (vendor/frontend-assets)" {
		t.Errorf("String() = %q", got)
	}
}
