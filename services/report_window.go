package services

import (
	"strings"
	"time"
)

// ReportKind selects the length of a report window
type ReportKind string

const (
	ReportDaily   ReportKind = "daily"
	ReportMonthly ReportKind = "monthly"
)

// Window is a half-open UTC time range [Start, End)
type Window struct {
	Kind     ReportKind `json:"kind"`
	Selector string     `json:"selector"`
	Start    time.Time  `json:"start"`
	End      time.Time  `json:"end"`
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ResolveWindow turns a report kind and date selector into a window. Daily
// selectors are YYYY-MM-DD, monthly selectors YYYY-MM. A blank kind means
// daily. Anything else is a validation error.
func ResolveWindow(kind, selector string) (Window, error) {
	k := ReportKind(strings.ToLower(strings.TrimSpace(kind)))
	if k == "" {
		k = ReportDaily
	}
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return Window{}, validation("A report date is required")
	}

	switch k {
	case ReportDaily:
		day, err := time.ParseInLocation("2006-01-02", selector, time.UTC)
		if err != nil {
			return Window{}, validation("Daily reports need a date in YYYY-MM-DD format")
		}
		return Window{Kind: k, Selector: selector, Start: day, End: day.AddDate(0, 0, 1)}, nil
	case ReportMonthly:
		month, err := time.ParseInLocation("2006-01", selector, time.UTC)
		if err != nil {
			return Window{}, validation("Monthly reports need a month in YYYY-MM format")
		}
		return Window{Kind: k, Selector: selector, Start: month, End: month.AddDate(0, 1, 0)}, nil
	default:
		return Window{}, validation("Unknown report type %q, expected daily or monthly", kind)
	}
}
