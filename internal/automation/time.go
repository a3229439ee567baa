package automation

import "time"

// formatDateKey renders a timestamp as its UTC calendar date (YYYY-MM-DD).
// Reminder and escalation dedupe keys carry it so the same condition may
// notify again on the next day.
func formatDateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// startOfDayUTC truncates a timestamp to UTC midnight.
func startOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// weekStartDate returns the most recent Monday 00:00 UTC as YYYY-MM-DD.
// On a Sunday the week started six days earlier.
func weekStartDate(t time.Time) string {
	u := t.UTC()
	diff := int(u.Weekday()) - int(time.Monday)
	if diff < 0 {
		diff += 7
	}
	monday := startOfDayUTC(u.AddDate(0, 0, -diff))
	return monday.Format("2006-01-02")
}
