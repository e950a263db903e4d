// Package report turns attendance records into what managers look at: the
// formatted table, dashboard series and XLSX/PDF exports.
package report

import (
	"fmt"
	"time"

	"github.com/xelth-com/geoattend/internal/dailykey"
)

const (
	clockLayout = "3:04 PM"
	// Pending marks an open record from today, Nil one from an earlier day
	Pending = "Pending"
	Nil     = "Nil"
)

// ShowDate renders a check-in date as "Mon, 4 Mar" with a non-breaking space before the month
func ShowDate(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return t.Format("Mon, 2") + "\u00a0" + t.Format("Jan")
}

// ShowCurrDate renders today's date as "Mon, 4 Mar"
func ShowCurrDate(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("Mon, 2 Jan")
}

// ShowCheckInTime renders a time of day as "9:05 AM"
func ShowCheckInTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(clockLayout)
}

// ShowCheckOutTime renders the check-out time, or Pending/Nil for an open record
func ShowCheckOutTime(checkIn time.Time, checkOut *time.Time, now time.Time, loc *time.Location) string {
	if checkOut != nil {
		return checkOut.In(loc).Format(clockLayout)
	}
	return openLabel(checkIn, now, loc)
}

// ShowCheckInOutTime renders "9:05 AM – 5:30 PM", the bare check-in time for
// an open record from today, or "9:05 AM – Nil" for an older open record
func ShowCheckInOutTime(checkIn time.Time, checkOut *time.Time, now time.Time, loc *time.Location) string {
	in := ShowCheckInTime(checkIn, loc)
	switch {
	case checkOut != nil:
		return in + " \u2013 " + checkOut.In(loc).Format(clockLayout)
	case sameDay(checkIn, now, loc):
		return in
	default:
		return in + " \u2013 " + Nil
	}
}

// ShowTimeDiff renders the worked duration as "8 h 15 min", "8 h" or "15 min"
func ShowTimeDiff(checkIn time.Time, checkOut *time.Time, now time.Time, loc *time.Location) string {
	if checkOut == nil {
		return openLabel(checkIn, now, loc)
	}
	return FormatDuration(checkOut.Sub(checkIn))
}

// FormatDuration renders whole hours and minutes, truncating seconds
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	mins := int(d/time.Minute) % 60
	switch {
	case hours == 0:
		return fmt.Sprintf("%d min", mins)
	case mins == 0:
		return fmt.Sprintf("%d h", hours)
	default:
		return fmt.Sprintf("%d h %d min", hours, mins)
	}
}

func openLabel(checkIn, now time.Time, loc *time.Location) string {
	if sameDay(checkIn, now, loc) {
		return Pending
	}
	return Nil
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	return dailykey.Day(a, loc) == dailykey.Day(b, loc)
}
