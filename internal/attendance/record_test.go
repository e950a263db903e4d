package attendance

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xelth-com/geoattend/internal/location"
)

func TestDeriveTodayPicksMostRecentOpenRecord(t *testing.T) {
	base := time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC)
	out := base.Add(time.Hour)
	records := []Record{
		{ID: "a", Worksite: "Jurong", CheckInTime: base, CheckOutTime: &out, Seq: 1},
		{ID: "b", Worksite: "Changi", CheckInTime: base.Add(2 * time.Hour), Seq: 2},
		{ID: "c", Worksite: "Jurong", CheckInTime: base.Add(3 * time.Hour), Seq: 3},
	}

	snap := DeriveToday("w1_2024-03-04", records)
	if snap.Status != CheckedIn || snap.OpenRecordID != "c" || snap.OpenWorksite != "Jurong" {
		t.Fatalf("Expected open record c at Jurong, got %+v", snap)
	}
	if snap.Records[0].ID != "c" || snap.Records[2].ID != "a" {
		t.Errorf("Records not newest first: %s..%s", snap.Records[0].ID, snap.Records[2].ID)
	}
	if records[0].ID != "a" {
		t.Error("DeriveToday must not reorder the caller's slice")
	}

	empty := DeriveToday("w1_2024-03-04", nil)
	if empty.Status != CheckedOut || empty.Records == nil {
		t.Errorf("Expected checked out with empty records, got %+v", empty)
	}
}

func TestSortNewestFirstBreaksTies(t *testing.T) {
	at := time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC)
	records := []Record{
		{ID: "x", CheckInTime: at, Seq: 1},
		{ID: "y", CheckInTime: at, Seq: 2},
		{ID: "b", CheckInTime: at},
		{ID: "a", CheckInTime: at},
	}
	SortNewestFirst(records)

	var ids []string
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	if got := strings.Join(ids, ","); got != "y,x,b,a" {
		t.Errorf("Expected y,x,b,a, got %s", got)
	}
}

func TestRecordJSONUsesStoredFieldNames(t *testing.T) {
	r := Record{ID: "r1", WorkerID: "w1", Worksite: "Jurong", DailyKey: "w1_2024-03-04",
		CheckInTime: time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC), Seq: 7}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, field := range []string{`"userId":"w1"`, `"checkInKey":"w1_2024-03-04"`, `"checkInDateTime"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("Missing %s in %s", field, data)
		}
	}
	if strings.Contains(string(data), "checkOutDateTime") || strings.Contains(string(data), "Seq") {
		t.Errorf("Open record leaked checkout or seq: %s", data)
	}
}

func TestEveryStatusHasAMessage(t *testing.T) {
	for _, s := range AllStatuses() {
		StatusMessage(s, "Jurong")
		if s.String() == "" {
			t.Errorf("Status %d has no name", uint8(s))
		}
	}
	if got := StatusMessage(CheckedIn, "Jurong"); got != "Checked in at Jurong." {
		t.Errorf("Unexpected message %q", got)
	}
	if got := Status(42).String(); got != "Status(42)" {
		t.Errorf("Unexpected name %q", got)
	}
}

func TestStatusJSON(t *testing.T) {
	for _, s := range AllStatuses() {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("Marshal %s: %v", s, err)
		}
		var back Status
		if err := json.Unmarshal(data, &back); err != nil || back != s {
			t.Errorf("Round trip of %s gave %s (%v)", s, back, err)
		}
	}
	var s Status
	if err := json.Unmarshal([]byte(`"sleeping"`), &s); err == nil {
		t.Error("Expected error for unknown status")
	}
}

func TestGpsMessage(t *testing.T) {
	cases := []struct {
		gps           location.GpsStatus
		site, current string
		want          string
	}{
		{location.GpsOn, "", "", "Your current location is not at a work site."},
		{location.GpsOn, "Jurong", "", "Your current location is Jurong."},
		{location.GpsOn, "Jurong", "Jurong", "Your current location is Jurong."},
		{location.GpsOn, "Changi", "Jurong", "Your current location is Changi. You must check out from Jurong."},
		{location.GpsDenied, "Jurong", "", location.GpsDenied.Message()},
	}
	for _, c := range cases {
		if got := GpsMessage(c.gps, c.site, c.current); got != c.want {
			t.Errorf("GpsMessage(%s, %q, %q) = %q, want %q", c.gps, c.site, c.current, got, c.want)
		}
	}
}
