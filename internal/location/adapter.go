package location

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/xelth-com/geoattend/internal/geofence"
)

// Error is returned for every terminal status other than On
type Error struct {
	Status GpsStatus
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("location %s", e.Status)
	}
	return fmt.Sprintf("location %s: %v", e.Status, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusOf extracts the GpsStatus carried by err, or GpsError for foreign errors
func StatusOf(err error) GpsStatus {
	var le *Error
	if errors.As(err, &le) {
		return le.Status
	}
	return GpsError
}

// Adapter turns a Platform into a flat success/failure call and tracks the
// GpsStatus of the last request. It never retries and never caches.
type Adapter struct {
	platform Platform

	mu       sync.Mutex
	status   GpsStatus
	observer func(GpsStatus)
}

// NewAdapter wraps a platform. observer, if non-nil, sees every status change.
func NewAdapter(platform Platform, observer func(GpsStatus)) *Adapter {
	return &Adapter{platform: platform, status: GpsOff, observer: observer}
}

// Status returns the status of the last request
func (a *Adapter) Status() GpsStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *Adapter) setStatus(s GpsStatus) {
	a.mu.Lock()
	a.status = s
	obs := a.observer
	a.mu.Unlock()
	if obs != nil {
		obs(s)
	}
}

func (a *Adapter) fail(s GpsStatus, err error) (geofence.Coordinate, error) {
	a.setStatus(s)
	return geofence.Coordinate{}, &Error{Status: s, Err: err}
}

// Acquire performs one high-accuracy position request
func (a *Adapter) Acquire(ctx context.Context) (geofence.Coordinate, error) {
	a.setStatus(GpsRequesting)

	if a.platform == nil || !a.platform.Supported() {
		return a.fail(GpsNotSupported, errors.New("geolocation not supported"))
	}

	// Skip the prompt when it is already known to be futile
	state, err := a.platform.Permission(ctx)
	if err != nil {
		log.Printf("⚠️ Location: permission query failed, requesting position anyway: %v", err)
	} else if state == PermissionDenied {
		return a.fail(GpsDenied, errors.New("geolocation permission denied"))
	}

	coord, err := a.platform.CurrentPosition(ctx, Options{HighAccuracy: true})
	if err != nil {
		var pe *PositionError
		if errors.As(err, &pe) && pe.Code == CodePermissionDenied {
			return a.fail(GpsDenied, err)
		}
		return a.fail(GpsError, err)
	}
	if !coord.Valid() {
		return a.fail(GpsError, fmt.Errorf("platform returned invalid coordinate [%v, %v]", coord.Lng, coord.Lat))
	}

	a.setStatus(GpsOn)
	return coord, nil
}
