// Package admin implements role administration and demo data generation.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/xelth-com/geoattend/internal/attendance"
	"github.com/xelth-com/geoattend/internal/dailykey"
	"github.com/xelth-com/geoattend/internal/geofence"
	"github.com/xelth-com/geoattend/internal/models"
	"github.com/xelth-com/geoattend/internal/store"
)

// UsersPerPage is the page size of the role table
const UsersPerPage = 10

var (
	// ErrHasData is returned when demo check-ins would mix with real ones
	ErrHasData = errors.New("checkIns already contains data")
	// ErrNoWorksites is returned when there is nowhere to place demo check-ins
	ErrNoWorksites = errors.New("no worksites configured")
	// ErrDaysOutOfRange is returned for a generator window outside 1..MaxDummyDays
	ErrDaysOutOfRange = fmt.Errorf("days must be between 1 and %d", MaxDummyDays)
)

// MaxDummyDays caps the demo generator at a year of history
const MaxDummyDays = 366

// UserPage is one page of the role table
type UserPage struct {
	Users      []models.User `json:"users"`
	Page       int           `json:"page"`
	PerPage    int           `json:"perPage"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"totalPages"`
}

// RoleUpdate reports what a bulk role change did
type RoleUpdate struct {
	Updated []string `json:"updated"`
	Unknown []string `json:"unknown,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

// Service holds the administration operations
type Service struct {
	users     store.UserStore
	records   store.AttendanceStore
	worksites store.WorksiteStore
	loc       *time.Location
	now       func() time.Time
}

// NewService creates an admin service
func NewService(users store.UserStore, records store.AttendanceStore, worksites store.WorksiteStore, loc *time.Location) *Service {
	return &Service{users: users, records: records, worksites: worksites, loc: loc, now: time.Now}
}

// ListUsers returns page (0-based) of the user table
func (s *Service) ListUsers(ctx context.Context, page int) (UserPage, error) {
	if page < 0 {
		page = 0
	}
	offset := math.MaxInt
	if page <= math.MaxInt/UsersPerPage {
		offset = page * UsersPerPage
	}
	users, total, err := s.users.List(ctx, offset, UsersPerPage)
	if err != nil {
		return UserPage{}, err
	}
	return UserPage{
		Users:      users,
		Page:       page,
		PerPage:    UsersPerPage,
		Total:      total,
		TotalPages: int((total + UsersPerPage - 1) / UsersPerPage),
	}, nil
}

// UpdateRoles applies {userID: role}. Unknown users and invalid roles are
// reported and skipped; the rest are still applied.
func (s *Service) UpdateRoles(ctx context.Context, roles map[string]string) (RoleUpdate, error) {
	ids := make([]string, 0, len(roles))
	for id := range roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	res := RoleUpdate{Updated: []string{}}
	for _, id := range ids {
		role := roles[id]
		if !models.ValidRole(role) {
			res.Invalid = append(res.Invalid, id)
			continue
		}
		err := s.users.UpdateRole(ctx, id, role)
		switch {
		case errors.Is(err, store.ErrNotFound):
			log.Printf("⚠️ Admin: no user %s for role change", id)
			res.Unknown = append(res.Unknown, id)
		case err != nil:
			return res, fmt.Errorf("update role of %s: %w", id, err)
		default:
			log.Printf("👤 Admin: %s is now %s", id, role)
			res.Updated = append(res.Updated, id)
		}
	}
	return res, nil
}

// GenerateDummyCheckIns fills an empty check-in table with one closed
// session per worker per day over the last days days, at a random worksite.
// It refuses to touch a table that already has data.
func (s *Service) GenerateDummyCheckIns(ctx context.Context, days int, seed int64) (int, error) {
	if days < 1 || days > MaxDummyDays {
		return 0, ErrDaysOutOfRange
	}
	n, err := s.records.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, ErrHasData
	}

	sites, err := s.worksites.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(sites) == 0 {
		return 0, ErrNoWorksites
	}

	workers, err := s.allWorkers(ctx)
	if err != nil {
		return 0, err
	}

	records := DummyCheckIns(workers, sites, s.now(), s.loc, days, rand.New(rand.NewSource(seed)))
	if err := s.records.Insert(ctx, records); err != nil {
		return 0, err
	}
	log.Printf("🧪 Admin: generated %d dummy check-ins", len(records))
	return len(records), nil
}

func (s *Service) allWorkers(ctx context.Context) ([]string, error) {
	var ids []string
	for offset := 0; ; offset += 100 {
		users, total, err := s.users.List(ctx, offset, 100)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if u.Role == models.RoleWorker {
				ids = append(ids, u.ID)
			}
		}
		if int64(offset+len(users)) >= total || len(users) == 0 {
			return ids, nil
		}
	}
}

// DummyCheckIns builds closed sessions starting around 08:00 and lasting
// roughly nine hours, for each worker on each of the last days days
// (today included, when the session has already ended).
func DummyCheckIns(workers []string, sites []geofence.Worksite, now time.Time, loc *time.Location, days int, rnd *rand.Rand) []attendance.Record {
	var out []attendance.Record
	today := dailykey.StartOfDay(now, loc)
	for d := days - 1; d >= 0; d-- {
		day := today.AddDate(0, 0, -d)
		for _, w := range workers {
			in := day.Add(7*time.Hour + 30*time.Minute + time.Duration(rnd.Intn(60))*time.Minute)
			checkOut := in.Add(8*time.Hour + time.Duration(rnd.Intn(120))*time.Minute)
			if checkOut.After(now) {
				continue
			}
			site := sites[rnd.Intn(len(sites))]
			out = append(out, attendance.Record{
				WorkerID:     w,
				Worksite:     site.Name,
				CheckInTime:  in,
				CheckOutTime: &checkOut,
				DailyKey:     dailykey.Build(w, in, loc),
			})
		}
	}
	return out
}
