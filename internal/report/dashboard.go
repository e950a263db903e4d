package report

import (
	"sort"
	"time"

	"github.com/xelth-com/geoattend/internal/attendance"
	"github.com/xelth-com/geoattend/internal/dailykey"
)

// DashboardDays is the span of the check-in trend
const DashboardDays = 7

// PieSlice is the worked time at one worksite, in minutes
type PieSlice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Point is one day of the trend
type Point struct {
	X string `json:"x"`
	Y int    `json:"y"`
}

// Series is one line of the trend chart
type Series struct {
	ID   string  `json:"id"`
	Data []Point `json:"data"`
}

// Dashboard is the manager overview
type Dashboard struct {
	Date      string     `json:"date"`
	OnSite    int        `json:"onSite"`
	CheckedIn int        `json:"checkedInToday"`
	Pie       []PieSlice `json:"pie"`
	Line      []Series   `json:"line"`
}

// BuildDashboard summarises the records of the last DashboardDays days
func BuildDashboard(records []attendance.Record, now time.Time, loc *time.Location) Dashboard {
	from, to := dailykey.Window(now, loc, DashboardDays)
	week := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		if !r.CheckInTime.Before(from) && r.CheckInTime.Before(to) {
			week = append(week, r)
		}
	}

	today := dailykey.Day(now, loc)
	workers := map[string]struct{}{}
	onSite := map[string]struct{}{}
	for _, r := range week {
		if dailykey.Day(r.CheckInTime, loc) != today {
			continue
		}
		workers[r.WorkerID] = struct{}{}
		if r.Open() {
			onSite[r.WorkerID] = struct{}{}
		}
	}

	return Dashboard{
		Date:      ShowCurrDate(now, loc),
		OnSite:    len(onSite),
		CheckedIn: len(workers),
		Pie:       SiteBreakdown(week),
		Line:      []Series{DailySeries(week, now, loc)},
	}
}

// SiteBreakdown sums the closed sessions' minutes per worksite, largest first
func SiteBreakdown(records []attendance.Record) []PieSlice {
	minutes := map[string]int{}
	for _, r := range records {
		if r.Open() {
			continue
		}
		minutes[r.Worksite] += int(r.Duration() / time.Minute)
	}

	out := make([]PieSlice, 0, len(minutes))
	for site, m := range minutes {
		out = append(out, PieSlice{ID: site, Label: site, Value: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DailySeries counts check-ins per day over the last DashboardDays days,
// oldest first, including days without any
func DailySeries(records []attendance.Record, now time.Time, loc *time.Location) Series {
	counts := map[string]int{}
	for _, r := range records {
		counts[dailykey.Day(r.CheckInTime, loc)]++
	}

	from, _ := dailykey.Window(now, loc, DashboardDays)
	s := Series{ID: "Check-ins", Data: make([]Point, 0, DashboardDays)}
	for i := 0; i < DashboardDays; i++ {
		day := from.AddDate(0, 0, i)
		s.Data = append(s.Data, Point{X: ShowCurrDate(day, loc), Y: counts[dailykey.Day(day, loc)]})
	}
	return s
}
