package radar

import "time"

// Overlaps reports whether a file covering [fileStart, fileEnd) belongs to
// the query window [start, end).
//
//	case 1: file crosses the query start      fs <= s && fe > s
//	case 2: file lies inside the query        fs >= s && fe < e
//	case 3: file crosses the query end        fs < e  && fe > e
//
// A file ending exactly at start or starting exactly at end is excluded.
func Overlaps(start, end, fileStart, fileEnd time.Time) bool {
	crossesStart := !fileStart.After(start) && fileEnd.After(start)
	inside := !fileStart.Before(start) && fileEnd.Before(end)
	crossesEnd := fileStart.Before(end) && fileEnd.After(end)
	return crossesStart || inside || crossesEnd
}

// TimeFilter selects files whose coverage overlaps a query window. A zero
// filter (no start and no end) accepts everything.
type TimeFilter struct {
	Start    *time.Time
	End      *time.Time
	Fallback time.Duration
}

// Enabled reports whether a time window was requested.
func (f TimeFilter) Enabled() bool {
	return f.Start != nil && f.End != nil
}

// Accept applies the overlap test to one parsed file.
func (f TimeFilter) Accept(info Info) bool {
	if !f.Enabled() {
		return true
	}
	fallback := f.Fallback
	if fallback <= 0 {
		fallback = DefaultFileTimeCoverage
	}
	fs, fe := info.Coverage(fallback)
	return Overlaps(*f.Start, *f.End, fs, fe)
}

// Coverage returns the operational interval of the radar. A radar that is
// still operational is covered until the current time.
func (r Radar) Coverage() (time.Time, time.Time) {
	if r.EndTime != nil {
		return r.StartTime, *r.EndTime
	}
	return r.StartTime, CurrentUTCTime()
}

// AvailableBetween reports whether the radar was operating during the window.
// Without a window the radar is always available.
func (r Radar) AvailableBetween(start, end *time.Time) bool {
	if start == nil || end == nil {
		return true
	}
	rs, re := r.Coverage()
	return Overlaps(*start, *end, rs, re)
}
