package report

import (
	"time"

	"github.com/xelth-com/geoattend/internal/attendance"
)

// PerPageOptions are the page sizes the attendance table offers
var PerPageOptions = []int{10, 25, 50}

// DefaultPerPage is used when the requested size is not offered
const DefaultPerPage = 10

// Row is one formatted line of the attendance table
type Row struct {
	RecordID string `json:"recordId"`
	WorkerID string `json:"workerId"`
	Date     string `json:"date"`
	Worker   string `json:"worker"`
	PhotoURL string `json:"photoURL,omitempty"`
	Worksite string `json:"worksite"`
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
	Duration string `json:"duration"`
}

// Profile is the display data of a worker
type Profile struct {
	Name     string
	PhotoURL string
}

// Rows formats records in the given order. Workers without a profile are
// shown by id.
func Rows(records []attendance.Record, profiles map[string]Profile, now time.Time, loc *time.Location) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		p, ok := profiles[r.WorkerID]
		if !ok || p.Name == "" {
			p.Name = r.WorkerID
		}
		rows[i] = Row{
			RecordID: r.ID,
			WorkerID: r.WorkerID,
			Date:     ShowDate(r.CheckInTime, loc),
			Worker:   p.Name,
			PhotoURL: p.PhotoURL,
			Worksite: r.Worksite,
			CheckIn:  ShowCheckInTime(r.CheckInTime, loc),
			CheckOut: ShowCheckOutTime(r.CheckInTime, r.CheckOutTime, now, loc),
			Duration: ShowTimeDiff(r.CheckInTime, r.CheckOutTime, now, loc),
		}
	}
	return rows
}

// PageInfo describes a slice of a longer list
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page returns page (0-based) of records. A page size outside
// PerPageOptions falls back to DefaultPerPage; a page past the end is empty.
func Page(records []attendance.Record, page, perPage int) ([]attendance.Record, PageInfo) {
	if !validPerPage(perPage) {
		perPage = DefaultPerPage
	}
	if page < 0 {
		page = 0
	}
	info := PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      len(records),
		TotalPages: (len(records) + perPage - 1) / perPage,
	}
	if page >= info.TotalPages {
		return []attendance.Record{}, info
	}
	start := page * perPage
	end := start + perPage
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], info
}

func validPerPage(n int) bool {
	for _, opt := range PerPageOptions {
		if n == opt {
			return true
		}
	}
	return false
}
