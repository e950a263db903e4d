package attendance

import (
	"encoding/json"
	"fmt"
)

// Status is the derived attendance state of a worker for the current day.
// It is never persisted.
type Status uint8

const (
	Loading Status = iota
	CheckedOut
	CheckingIn
	CheckedIn
	CheckingOut

	statusCount = int(CheckingOut) + 1
)

var statusNames = [...]string{
	Loading:     "loading",
	CheckedOut:  "checkedOut",
	CheckingIn:  "checkingIn",
	CheckedIn:   "checkedIn",
	CheckingOut: "checkingOut",
}

var (
	_ [statusCount - len(statusNames)]struct{}
	_ [len(statusNames) - statusCount]struct{}
)

// AllStatuses lists every status in declaration order
func AllStatuses() []Status {
	out := make([]Status, statusCount)
	for i := range out {
		out[i] = Status(i)
	}
	return out
}

func (s Status) Valid() bool { return int(s) < statusCount }

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
	return statusNames[s]
}

// Transitioning reports whether a check-in or check-out is in flight
func (s Status) Transitioning() bool {
	return s == CheckingIn || s == CheckingOut
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range statusNames {
		if n == name {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown attendance status %q", name)
}

// Kind distinguishes the two user-initiated transitions
type Kind uint8

const (
	KindCheckIn Kind = iota
	KindCheckOut
)

func (k Kind) String() string {
	switch k {
	case KindCheckIn:
		return "checkIn"
	case KindCheckOut:
		return "checkOut"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, c := range []Kind{KindCheckIn, KindCheckOut} {
		if c.String() == name {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown transition kind %q", name)
}
