// Package store persists attendance records, worksites and users, and
// publishes every committed write on a Feed so that live subscriptions can
// recompute their snapshots. Two implementations share the contracts below:
// GORM/PostgreSQL repositories for the service and in-memory stores for
// tests and demos.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/xelth-com/geoattend/internal/attendance"
	"github.com/xelth-com/geoattend/internal/dailykey"
	"github.com/xelth-com/geoattend/internal/geofence"
	"github.com/xelth-com/geoattend/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// AttendanceStore is the full attendance record repository
type AttendanceStore interface {
	attendance.Store

	// SubscribeAll delivers every record, newest first, initially and after each change
	SubscribeAll(onUpdate func([]attendance.Record)) (unsubscribe func(), err error)
	List(ctx context.Context) ([]attendance.Record, error)
	// ListRange returns records with from <= check-in < to, newest first
	ListRange(ctx context.Context, from, to time.Time) ([]attendance.Record, error)
	Count(ctx context.Context) (int64, error)
	// Insert stores complete records as-is, for seeding and generated demo data
	Insert(ctx context.Context, records []attendance.Record) error
}

// WorksiteStore is the worksite repository
type WorksiteStore interface {
	attendance.Worksites

	Get(ctx context.Context, id string) (geofence.Worksite, error)
	Create(ctx context.Context, name string, boundary []geofence.Coordinate) (geofence.Worksite, error)
	Update(ctx context.Context, id, name string, boundary []geofence.Coordinate) (geofence.Worksite, error)
	Delete(ctx context.Context, id string) error
	// Subscribe reports added, changed and removed worksites
	Subscribe(onChange func(Change)) (unsubscribe func())
}

// UserStore is the account repository
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// List returns one page ordered by creation and the total count
	List(ctx context.Context, offset, limit int) ([]models.User, int64, error)
	UpdateRole(ctx context.Context, id, role string) error
	SetPhotoURL(ctx context.Context, id, url string) error
	RecordLogIn(ctx context.Context, id string, at time.Time) error
}

// Options are shared by every attendance store
type Options struct {
	// Location decides the calendar day of a daily key
	Location *time.Location
	// Now decides which day SubscribeToday follows
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		loc, err := dailykey.LoadLocation("")
		if err != nil {
			loc = time.UTC
		}
		o.Location = loc
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func validateBoundary(name string, boundary []geofence.Coordinate) error {
	if name == "" {
		return errors.New("worksite name is required")
	}
	return geofence.ValidateBoundary(boundary)
}
