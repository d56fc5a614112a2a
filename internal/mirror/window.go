package mirror

import "time"

// Window is an inclusive range of calendar dates fetched as one unit.
type Window struct {
	Start time.Time
	End   time.Time
}

// String formats the window as "YYYY-MM-DD..YYYY-MM-DD".
func (w Window) String() string {
	return w.Start.Format(time.DateOnly) + ".." + w.End.Format(time.DateOnly)
}

// Windows splits [start, end] into successive one-calendar-month windows.
// Each window ends the day before the same day of the next month (clamped
// to that month's length, so Jan 31 runs to Feb 28 in a leap year); the
// last one is clipped to end. Times are truncated to UTC dates.
func Windows(start, end time.Time) []Window {
	start = dateOf(start)
	end = dateOf(end)

	var windows []Window
	for !start.After(end) {
		windowEnd := addMonth(start).AddDate(0, 0, -1)
		if windowEnd.After(end) {
			windowEnd = end
		}
		windows = append(windows, Window{Start: start, End: windowEnd})
		start = windowEnd.AddDate(0, 0, 1)
	}
	return windows
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// addMonth moves t one calendar month forward, clamping the day to the
// length of the target month instead of overflowing into the next one.
func addMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}
