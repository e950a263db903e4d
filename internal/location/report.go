package location

import (
	"context"

	"github.com/xelth-com/geoattend/internal/geofence"
)

// Position is a fix as reported by the browser
type Position struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// Report is what a client sends after running the browser geolocation calls.
// A nil Supported means the client has geolocation.
type Report struct {
	Supported  *bool           `json:"supported,omitempty"`
	Permission PermissionState `json:"permission,omitempty"`
	Position   *Position       `json:"position,omitempty"`
	Error      *PositionError  `json:"error,omitempty"`
}

// Platform replays the report through the Platform interface so the adapter
// applies the same status rules it would against a live device.
func (r Report) Platform() Platform {
	return reportedPlatform{r}
}

type reportedPlatform struct {
	report Report
}

func (p reportedPlatform) Supported() bool {
	return p.report.Supported == nil || *p.report.Supported
}

func (p reportedPlatform) Permission(ctx context.Context) (PermissionState, error) {
	if p.report.Permission == "" {
		return PermissionPrompt, nil
	}
	return p.report.Permission, nil
}

func (p reportedPlatform) CurrentPosition(ctx context.Context, opts Options) (geofence.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return geofence.Coordinate{}, &PositionError{Code: CodeTimeout, Message: err.Error()}
	}
	if p.report.Error != nil {
		return geofence.Coordinate{}, p.report.Error
	}
	if p.report.Position == nil {
		return geofence.Coordinate{}, &PositionError{Code: CodePositionUnavailable, Message: "no position reported"}
	}
	return geofence.Coordinate{Lng: p.report.Position.Longitude, Lat: p.report.Position.Latitude}, nil
}
