package location

import (
	"encoding/json"
	"fmt"
)

// GpsStatus is the outcome of the most recent location request
type GpsStatus uint8

const (
	GpsOff GpsStatus = iota
	GpsRequesting
	GpsOn
	GpsNotSupported
	GpsDenied
	GpsError

	gpsStatusCount = int(GpsError) + 1
)

var gpsStatusNames = [...]string{
	GpsOff:          "off",
	GpsRequesting:   "requesting",
	GpsOn:           "on",
	GpsNotSupported: "notSupported",
	GpsDenied:       "denied",
	GpsError:        "error",
}

// Messages for every status except On, whose text depends on the site found.
var gpsStatusMessages = [...]string{
	GpsOff:          "",
	GpsRequesting:   "Requesting location access.",
	GpsOn:           "",
	GpsNotSupported: "Location access not supported. Please use a compatible browser.",
	GpsDenied:       "Location access denied. Please grant access to confirm you're at a work site.",
	GpsError:        "Location access error. Please contact support.",
}

// Adding a status without extending the tables above fails to compile.
var (
	_ [gpsStatusCount - len(gpsStatusNames)]struct{}
	_ [len(gpsStatusNames) - gpsStatusCount]struct{}
	_ [gpsStatusCount - len(gpsStatusMessages)]struct{}
	_ [len(gpsStatusMessages) - gpsStatusCount]struct{}
)

// AllGpsStatuses lists every status in declaration order
func AllGpsStatuses() []GpsStatus {
	out := make([]GpsStatus, gpsStatusCount)
	for i := range out {
		out[i] = GpsStatus(i)
	}
	return out
}

func (s GpsStatus) Valid() bool { return int(s) < gpsStatusCount }

func (s GpsStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("GpsStatus(%d)", uint8(s))
	}
	return gpsStatusNames[s]
}

// Message is the user-facing text for the status. It is empty for Off and On.
func (s GpsStatus) Message() string {
	if !s.Valid() {
		return ""
	}
	return gpsStatusMessages[s]
}

// Terminal reports whether a request has finished in this status
func (s GpsStatus) Terminal() bool {
	return s != GpsOff && s != GpsRequesting
}

func (s GpsStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *GpsStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range gpsStatusNames {
		if n == name {
			*s = GpsStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown gps status %q", name)
}
