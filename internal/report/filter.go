package report

import (
	"strings"
	"time"
)

// activeStatus is the only subscription status that passes the active
// predicate, compared case-insensitively.
const activeStatus = "active"

// Window is an inclusive billing-period date range. A zero Start or End
// leaves that side open.
type Window struct {
	Start time.Time
	End   time.Time
}

// PreviousMonth returns the window covering the previous calendar month
// relative to now: first day through last day inclusive.
func PreviousMonth(now time.Time) Window {
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{
		Start: firstOfCurrent.AddDate(0, -1, 0),
		End:   firstOfCurrent.AddDate(0, 0, -1),
	}
}

// ThroughPreviousMonthEnd returns a window with an open start, ending on the
// last day of the previous calendar month. Used by the local export filter.
func ThroughPreviousMonthEnd(now time.Time) Window {
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{End: firstOfCurrent.AddDate(0, 0, -1)}
}

// Filter decides row inclusion. A nil Window means dates are not consulted.
type Filter struct {
	Window        *Window
	RequireActive bool
}

// Keep reports whether a record survives the filter. With a window
// configured, an unparseable created-at date is a deterministic drop, not an
// error.
func (f Filter) Keep(rec *Record) bool {
	if f.Window != nil {
		d, err := time.Parse("2006-01-02", rec.CreatedAt)
		if err != nil {
			return false
		}
		if !f.Window.Start.IsZero() && d.Before(f.Window.Start) {
			return false
		}
		if !f.Window.End.IsZero() && d.After(f.Window.End) {
			return false
		}
	}
	if f.RequireActive && !strings.EqualFold(strings.TrimSpace(rec.Status), activeStatus) {
		return false
	}
	return true
}

// Apply returns the records that survive the filter, preserving input order.
func (f Filter) Apply(records []*Record) []*Record {
	kept := make([]*Record, 0, len(records))
	for _, rec := range records {
		if f.Keep(rec) {
			kept = append(kept, rec)
		}
	}
	return kept
}
