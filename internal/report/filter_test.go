package report

import (
	"strings"
	"testing"
	"time"
)

func mustParseRow(t *testing.T, csv string) *Record {
	t.Helper()
	rep, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rep.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(rep.Records))
	}
	return rep.Records[0]
}

func TestPreviousMonth(t *testing.T) {
	tests := []struct {
		name      string
		now       string
		wantStart string
		wantEnd   string
	}{
		{"mid-year", "2024-06-15", "2024-05-01", "2024-05-31"},
		{"january wraps to december", "2024-01-10", "2023-12-01", "2023-12-31"},
		{"march after leap february", "2024-03-01", "2024-02-01", "2024-02-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now, _ := time.Parse("2006-01-02", tt.now)
			w := PreviousMonth(now)
			if got := w.Start.Format("2006-01-02"); got != tt.wantStart {
				t.Errorf("Start = %s, want %s", got, tt.wantStart)
			}
			if got := w.End.Format("2006-01-02"); got != tt.wantEnd {
				t.Errorf("End = %s, want %s", got, tt.wantEnd)
			}
		})
	}
}

func TestThroughPreviousMonthEnd(t *testing.T) {
	now, _ := time.Parse("2006-01-02", "2024-06-15")
	w := ThroughPreviousMonthEnd(now)
	if !w.Start.IsZero() {
		t.Errorf("Start = %v, want open", w.Start)
	}
	if got := w.End.Format("2006-01-02"); got != "2024-05-31" {
		t.Errorf("End = %s, want 2024-05-31", got)
	}
}

func TestFilter_PreviousMonthScenario(t *testing.T) {
	// Row inside the May 2024 window with an active subscription is kept.
	rec := mustParseRow(t,
		"Username,Check Ins,Subscription Status,Email,Created At\n"+
			`Alice,15,Active,alice@x.com,2024-05-10 10:00:00`+"\n")

	now, _ := time.Parse("2006-01-02", "2024-06-03")
	w := PreviousMonth(now)
	f := Filter{Window: &w, RequireActive: true}

	if !f.Keep(rec) {
		t.Fatal("Keep = false, want kept")
	}
	if rec.CheckIns != 15 {
		t.Errorf("CheckIns = %d, want 15", rec.CheckIns)
	}
}

func TestFilter_InactiveDroppedRegardlessOfCheckIns(t *testing.T) {
	rec := mustParseRow(t, "Username,Check ins,Status\nBob,3,inactive\n")
	f := Filter{RequireActive: true}
	if f.Keep(rec) {
		t.Error("Keep = true, want dropped by active-status filter")
	}
}

func TestFilter_StatusCaseInsensitive(t *testing.T) {
	for _, status := range []string{"active", "Active", "ACTIVE", " aCtIvE "} {
		rec := mustParseRow(t, "Username,Status\nBob,"+status+"\n")
		f := Filter{RequireActive: true}
		if !f.Keep(rec) {
			t.Errorf("status %q dropped, want kept", status)
		}
	}
}

func TestFilter_UnparseableDate(t *testing.T) {
	rec := mustParseRow(t, "Username,Status,Created At\nCara,active,not-a-date\n")

	now, _ := time.Parse("2006-01-02", "2024-06-03")
	w := PreviousMonth(now)

	// Under a date window the bad date is a deterministic drop.
	if (Filter{Window: &w, RequireActive: true}).Keep(rec) {
		t.Error("kept under date window, want dropped")
	}
	// Status-only mode never consults the date.
	if !(Filter{RequireActive: true}).Keep(rec) {
		t.Error("dropped under status-only mode, want kept")
	}
}

func TestFilter_WindowBoundsInclusive(t *testing.T) {
	now, _ := time.Parse("2006-01-02", "2024-06-03")
	w := PreviousMonth(now)
	f := Filter{Window: &w}

	tests := []struct {
		date string
		want bool
	}{
		{"2024-05-01", true},
		{"2024-05-31", true},
		{"2024-04-30", false},
		{"2024-06-01", false},
	}
	for _, tt := range tests {
		rec := mustParseRow(t, "Username,Created At\nX,"+tt.date+"\n")
		if got := f.Keep(rec); got != tt.want {
			t.Errorf("Keep(created %s) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestFilter_ApplyNeverAddsRows(t *testing.T) {
	csv := "Username,Status\nA,active\nB,inactive\nC,active\n"
	rep, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	kept := Filter{RequireActive: true}.Apply(rep.Records)
	if len(kept) != 2 {
		t.Errorf("kept = %d, want 2", len(kept))
	}
	if len(kept) > len(rep.Records) {
		t.Error("filter added rows")
	}
}
