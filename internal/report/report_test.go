package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/xelth-com/geoattend/internal/attendance"
	"github.com/xelth-com/geoattend/internal/dailykey"
	"github.com/xelth-com/geoattend/internal/geofence"
	"github.com/xuri/excelize/v2"
)

func sgt(t *testing.T) *time.Location {
	t.Helper()
	loc, err := dailykey.LoadLocation("")
	if err != nil {
		t.Fatalf("Failed to load time zone: %v", err)
	}
	return loc
}

func ptr(t time.Time) *time.Time { return &t }

func TestFormatting(t *testing.T) {
	loc := sgt(t)
	in := time.Date(2024, 3, 4, 9, 5, 0, 0, loc)
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, loc)
	tomorrow := now.AddDate(0, 0, 1)

	if got := ShowDate(in, loc); got != "Mon, 4\u00a0Mar" {
		t.Errorf("ShowDate = %q", got)
	}
	if got := ShowCurrDate(in.UTC(), loc); got != "Mon, 4 Mar" {
		t.Errorf("ShowCurrDate = %q", got)
	}
	if got := ShowCheckInTime(in.UTC(), loc); got != "9:05 AM" {
		t.Errorf("ShowCheckInTime = %q", got)
	}

	cases := []struct {
		name     string
		out      *time.Time
		now      time.Time
		checkOut string
		inOut    string
		diff     string
	}{
		{"closed", ptr(in.Add(8*time.Hour + 25*time.Minute)), now, "5:30 PM", "9:05 AM – 5:30 PM", "8 h 25 min"},
		{"whole hours", ptr(in.Add(2 * time.Hour)), now, "11:05 AM", "9:05 AM – 11:05 AM", "2 h"},
		{"minutes", ptr(in.Add(45*time.Minute + 30*time.Second)), now, "9:50 AM", "9:05 AM – 9:50 AM", "45 min"},
		{"open today", nil, now, Pending, "9:05 AM", Pending},
		{"open yesterday", nil, tomorrow, Nil, "9:05 AM – Nil", Nil},
	}
	for _, c := range cases {
		if got := ShowCheckOutTime(in, c.out, c.now, loc); got != c.checkOut {
			t.Errorf("%s: ShowCheckOutTime = %q, want %q", c.name, got, c.checkOut)
		}
		if got := ShowCheckInOutTime(in, c.out, c.now, loc); got != c.inOut {
			t.Errorf("%s: ShowCheckInOutTime = %q, want %q", c.name, got, c.inOut)
		}
		if got := ShowTimeDiff(in, c.out, c.now, loc); got != c.diff {
			t.Errorf("%s: ShowTimeDiff = %q, want %q", c.name, got, c.diff)
		}
	}
}

func records(loc *time.Location) []attendance.Record {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, loc)
	return []attendance.Record{
		{ID: "r4", WorkerID: "w1", Worksite: "Jurong", CheckInTime: day.Add(9 * time.Hour)},
		{ID: "r3", WorkerID: "w2", Worksite: "Changi", CheckInTime: day.Add(8 * time.Hour), CheckOutTime: ptr(day.Add(9 * time.Hour))},
		{ID: "r2", WorkerID: "w1", Worksite: "Jurong", CheckInTime: day.Add(-16 * time.Hour), CheckOutTime: ptr(day.Add(-13 * time.Hour))},
		{ID: "r1", WorkerID: "w2", Worksite: "Jurong", CheckInTime: day.AddDate(0, 0, -9), CheckOutTime: ptr(day.AddDate(0, 0, -8))},
	}
}

func TestPage(t *testing.T) {
	var recs []attendance.Record
	for i := 0; i < 27; i++ {
		recs = append(recs, attendance.Record{ID: string(rune('a' + i))})
	}

	page, info := Page(recs, 1, 25)
	if len(page) != 2 || info.TotalPages != 2 || info.PerPage != 25 {
		t.Errorf("Unexpected page of %d, info %+v", len(page), info)
	}
	page, info = Page(recs, 0, 7)
	if len(page) != 10 || info.PerPage != DefaultPerPage {
		t.Errorf("Unsupported size should fall back to 10, got %d (%+v)", len(page), info)
	}
	if page, _ = Page(recs, 9, 50); len(page) != 0 {
		t.Errorf("Expected empty page past the end, got %d", len(page))
	}
	page, info = Page(recs[:1], math.MaxInt/10+1, 10)
	if len(page) != 0 || info.Total != 1 {
		t.Errorf("Expected empty page for a huge page number, got %d (%+v)", len(page), info)
	}
}

func TestDashboard(t *testing.T) {
	loc := sgt(t)
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, loc)
	d := BuildDashboard(records(loc), now, loc)

	if d.OnSite != 1 || d.CheckedIn != 2 {
		t.Errorf("Expected 1 on site of 2 today, got %d of %d", d.OnSite, d.CheckedIn)
	}
	// r1 is outside the week, r4 is still open
	if len(d.Pie) != 2 || d.Pie[0].ID != "Jurong" || d.Pie[0].Value != 180 || d.Pie[1].Value != 60 {
		t.Errorf("Unexpected pie %+v", d.Pie)
	}

	line := d.Line[0].Data
	if len(line) != DashboardDays {
		t.Fatalf("Expected %d points, got %d", DashboardDays, len(line))
	}
	if line[0].X != "Tue, 27 Feb" || line[6].X != "Mon, 4 Mar" {
		t.Errorf("Unexpected span %s..%s", line[0].X, line[6].X)
	}
	if line[6].Y != 2 || line[5].Y != 1 || line[0].Y != 0 {
		t.Errorf("Unexpected counts %+v", line)
	}
}

func TestRowsUseProfiles(t *testing.T) {
	loc := sgt(t)
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, loc)
	rows := Rows(records(loc)[:2], map[string]Profile{"w1": {Name: "Ann"}}, now, loc)

	if rows[0].Worker != "Ann" || rows[0].CheckOut != Pending {
		t.Errorf("Unexpected row %+v", rows[0])
	}
	if rows[1].Worker != "w2" || rows[1].Duration != "1 h" {
		t.Errorf("Unexpected row %+v", rows[1])
	}
}

func TestWriteXLSX(t *testing.T) {
	loc := sgt(t)
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, loc)
	rows := Rows(records(loc), nil, now, loc)

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, rows); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Workbook does not open: %v", err)
	}
	defer f.Close()
	got, err := f.GetRows(TimesheetSheet)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(got) != len(rows)+1 {
		t.Fatalf("Expected %d rows, got %d", len(rows)+1, len(got))
	}
	if got[0][2] != "Work Site" || got[2][5] != "1 h" {
		t.Errorf("Unexpected cells %v / %v", got[0], got[2])
	}
}

func TestPDFs(t *testing.T) {
	loc := sgt(t)
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, loc)

	sheet, err := TimesheetPDF("Attendance – Mon, 4 Mar", Rows(records(loc), nil, now, loc))
	if err != nil {
		t.Fatalf("TimesheetPDF failed: %v", err)
	}
	if !bytes.HasPrefix(sheet, []byte("%PDF")) {
		t.Error("Timesheet is not a PDF")
	}

	site := geofence.Worksite{Name: "Jurong East", Boundary: []geofence.Coordinate{{Lng: 103.70, Lat: 1.32}, {Lng: 103.75, Lat: 1.32}, {Lng: 103.75, Lat: 1.35}}}
	link := CheckInURL("https://attend.example.com/", site)
	if link != "https://attend.example.com/?worksite=Jurong+East" {
		t.Errorf("Unexpected link %s", link)
	}
	poster, err := WorksitePoster(site, link)
	if err != nil {
		t.Fatalf("WorksitePoster failed: %v", err)
	}
	if !bytes.HasPrefix(poster, []byte("%PDF")) {
		t.Error("Poster is not a PDF")
	}

	png, err := WorksiteQR(link, 128)
	if err != nil || !strings.HasPrefix(string(png), "\x89PNG") {
		t.Errorf("WorksiteQR did not return a PNG: %v", err)
	}
}
