package location

import (
	"context"
	"fmt"

	"github.com/xelth-com/geoattend/internal/geofence"
)

// PermissionState mirrors the browser permission query result
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionPrompt  PermissionState = "prompt"
	PermissionDenied  PermissionState = "denied"
)

// Position error codes as reported by the geolocation API
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// Options for a one-shot position request
type Options struct {
	HighAccuracy bool
}

// PositionError is a failure reported by the platform's position callback
type PositionError struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("position error code %d", e.Code)
	}
	return fmt.Sprintf("position error code %d: %s", e.Code, e.Message)
}

// Platform is the device geolocation capability
type Platform interface {
	// Supported reports whether the device exposes geolocation at all
	Supported() bool
	// Permission queries the current permission state without prompting
	Permission(ctx context.Context) (PermissionState, error)
	// CurrentPosition performs a single position request
	CurrentPosition(ctx context.Context, opts Options) (geofence.Coordinate, error)
}
