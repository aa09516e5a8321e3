package record

import "time"

// Window is an inclusive range over Record.Date, a zero bound is open.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether a YYYY-MM-DD date falls inside the window.
func (w Window) Contains(date string) bool {
	if !w.Start.IsZero() && date < w.Start.Format(DateLayout) {
		return false
	}
	if !w.End.IsZero() && date > w.End.Format(DateLayout) {
		return false
	}
	return true
}

func (w Window) String() string {
	start, end := "..", ".."
	if !w.Start.IsZero() {
		start = w.Start.Format(DateLayout)
	}
	if !w.End.IsZero() {
		end = w.End.Format(DateLayout)
	}
	return start + " to " + end
}
