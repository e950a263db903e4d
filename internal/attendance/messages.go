package attendance

import (
	"fmt"

	"github.com/xelth-com/geoattend/internal/location"
)

// GpsMessage is the location line shown under the check-in control
func GpsMessage(gps location.GpsStatus, gpsSite, checkedInSite string) string {
	if gps != location.GpsOn {
		return gps.Message()
	}
	switch {
	case gpsSite == "":
		return "Your current location is not at a work site."
	case checkedInSite != "" && gpsSite != checkedInSite:
		return fmt.Sprintf("Your current location is %s. You must check out from %s.", gpsSite, checkedInSite)
	default:
		return fmt.Sprintf("Your current location is %s.", gpsSite)
	}
}

// StatusMessage is the attendance line shown above the check-in control
func StatusMessage(s Status, checkedInSite string) string {
	switch s {
	case Loading:
		return ""
	case CheckedIn:
		return fmt.Sprintf("Checked in at %s.", checkedInSite)
	case CheckedOut:
		return "Checked out."
	case CheckingIn:
		return "Checking in..."
	case CheckingOut:
		return "Checking out..."
	}
	panic(fmt.Sprintf("attendance: no message for %s", s))
}
