package attendance

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/xelth-com/geoattend/internal/geofence"
)

// ErrOpenRecordExists is returned when a worker already has an open record for the day
var ErrOpenRecordExists = errors.New("an open attendance record already exists for this worker today")

// Record is one continuous on-site session
type Record struct {
	ID           string     `json:"id"`
	WorkerID     string     `json:"userId"`
	Worksite     string     `json:"worksite"`
	CheckInTime  time.Time  `json:"checkInDateTime"`
	CheckOutTime *time.Time `json:"checkOutDateTime,omitempty"`
	DailyKey     string     `json:"checkInKey"`

	// Seq is the store's insertion sequence, used only to break ordering ties
	Seq int64 `json:"-"`
}

// Open reports whether the record has not been checked out yet
func (r Record) Open() bool { return r.CheckOutTime == nil }

// Duration is the worked time for a closed record, zero otherwise
func (r Record) Duration() time.Duration {
	if r.CheckOutTime == nil {
		return 0
	}
	return r.CheckOutTime.Sub(r.CheckInTime)
}

// TodaySnapshot is what a per-worker live subscription delivers
type TodaySnapshot struct {
	DailyKey     string   `json:"dailyKey"`
	Records      []Record `json:"records"`
	OpenRecordID string   `json:"openRecordId,omitempty"`
	OpenWorksite string   `json:"openWorksite,omitempty"`
	Status       Status   `json:"status"`
}

// CloseResult tells whether WriteCheckOut actually closed the record
type CloseResult struct {
	Closed bool
}

// SortNewestFirst orders records by check-in time descending; ties go to the
// later insertion, then to the larger id.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.CheckInTime.Equal(b.CheckInTime) {
			return a.CheckInTime.After(b.CheckInTime)
		}
		if a.Seq != b.Seq {
			return a.Seq > b.Seq
		}
		return a.ID > b.ID
	})
}

// DeriveToday builds the snapshot for one daily key. When more than one
// record is open the most recent one is reported.
func DeriveToday(key string, records []Record) TodaySnapshot {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	SortNewestFirst(sorted)

	snap := TodaySnapshot{DailyKey: key, Records: sorted, Status: CheckedOut}
	for _, r := range sorted {
		if r.Open() {
			snap.OpenRecordID = r.ID
			snap.OpenWorksite = r.Worksite
			snap.Status = CheckedIn
			break
		}
	}
	return snap
}

// Store is the attendance record repository the machine writes through
type Store interface {
	WriteCheckIn(ctx context.Context, workerID, worksite string, now time.Time) (string, error)
	WriteCheckOut(ctx context.Context, recordID string, now time.Time) (CloseResult, error)
	SubscribeToday(workerID string, onUpdate func(TodaySnapshot)) (unsubscribe func(), err error)
}

// Worksites supplies the polygons in their stable load order
type Worksites interface {
	List(ctx context.Context) ([]geofence.Worksite, error)
}
