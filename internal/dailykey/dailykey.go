// Package dailykey derives the per-worker, per-day key that attendance records
// are indexed by. The calendar day is always taken in one fixed time zone so
// every device agrees on what "today" is for a worker.
package dailykey

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal containers
)

const (
	// DefaultTimeZone is the zone the reference deployment runs in
	DefaultTimeZone = "Asia/Singapore"

	// Separator joins the worker id and the date
	Separator = "_"

	dateLayout = "2006-01-02"
)

// LoadLocation resolves a zone name, falling back to DefaultTimeZone when empty
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

// Build returns workerID + "_" + yyyy-MM-dd of instant in loc
func Build(workerID string, instant time.Time, loc *time.Location) string {
	return workerID + Separator + Day(instant, loc)
}

// Day formats the calendar date of instant in loc
func Day(instant time.Time, loc *time.Location) string {
	return instant.In(loc).Format(dateLayout)
}

// Split returns the worker id and date of a key built by Build
func Split(key string) (workerID, day string, ok bool) {
	i := strings.LastIndex(key, Separator)
	if i < 0 || len(key)-i-1 != len(dateLayout) {
		return "", "", false
	}
	if _, err := time.Parse(dateLayout, key[i+1:]); err != nil {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

// StartOfDay returns local midnight of instant's calendar day in loc
func StartOfDay(instant time.Time, loc *time.Location) time.Time {
	t := instant.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Window returns the span covering the last `days` calendar days up to and
// including the day of now: [start of day (days-1) ago, start of tomorrow).
func Window(now time.Time, loc *time.Location, days int) (time.Time, time.Time) {
	if days < 1 {
		days = 1
	}
	today := StartOfDay(now, loc)
	return today.AddDate(0, 0, -(days - 1)), today.AddDate(0, 0, 1)
}
