package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/geoattend/internal/attendance"
	"github.com/xelth-com/geoattend/internal/dailykey"
	"github.com/xelth-com/geoattend/internal/geofence"
	"github.com/xelth-com/geoattend/internal/models"
)

// MemoryAttendance keeps records in process memory
type MemoryAttendance struct {
	feed *Feed
	opts Options

	mu      sync.Mutex
	seq     int64
	records map[string]attendance.Record
}

// NewMemoryAttendance creates an empty in-memory attendance store
func NewMemoryAttendance(feed *Feed, opts Options) *MemoryAttendance {
	return &MemoryAttendance{
		feed:    feed,
		opts:    opts.withDefaults(),
		records: make(map[string]attendance.Record),
	}
}

func (m *MemoryAttendance) WriteCheckIn(ctx context.Context, workerID, worksite string, now time.Time) (string, error) {
	if workerID == "" || worksite == "" {
		return "", errors.New("worker id and worksite are required")
	}
	key := dailykey.Build(workerID, now, m.opts.Location)

	m.mu.Lock()
	for _, r := range m.records {
		if r.DailyKey == key && r.Open() {
			m.mu.Unlock()
			return "", attendance.ErrOpenRecordExists
		}
	}
	m.seq++
	r := attendance.Record{
		ID:          uuid.NewString(),
		WorkerID:    workerID,
		Worksite:    worksite,
		CheckInTime: now,
		DailyKey:    key,
		Seq:         m.seq,
	}
	m.records[r.ID] = r
	m.mu.Unlock()

	m.feed.Publish(Change{Collection: CheckIns, Kind: ChildAdded, ID: r.ID, Key: key})
	return r.ID, nil
}

func (m *MemoryAttendance) WriteCheckOut(ctx context.Context, recordID string, now time.Time) (attendance.CloseResult, error) {
	m.mu.Lock()
	r, ok := m.records[recordID]
	if !ok {
		m.mu.Unlock()
		log.Printf("⚠️  Store: check-out of missing record %s ignored", recordID)
		return attendance.CloseResult{Closed: false}, nil
	}
	if !r.Open() {
		m.mu.Unlock()
		return attendance.CloseResult{Closed: false}, nil
	}
	out := now
	r.CheckOutTime = &out
	m.records[recordID] = r
	m.mu.Unlock()

	m.feed.Publish(Change{Collection: CheckIns, Kind: ChildChanged, ID: r.ID, Key: r.DailyKey})
	return attendance.CloseResult{Closed: true}, nil
}

// SubscribeToday follows the daily key of the day the subscription starts
func (m *MemoryAttendance) SubscribeToday(workerID string, onUpdate func(attendance.TodaySnapshot)) (func(), error) {
	if onUpdate == nil {
		return nil, errors.New("nil snapshot callback")
	}
	key := dailykey.Build(workerID, m.opts.Now(), m.opts.Location)
	filter := func(c Change) bool { return c.Collection == CheckIns && c.Key == key }
	return m.feed.subscribe(filter, func(Change) {
		onUpdate(attendance.DeriveToday(key, m.byKey(key)))
	}, true), nil
}

func (m *MemoryAttendance) SubscribeAll(onUpdate func([]attendance.Record)) (func(), error) {
	if onUpdate == nil {
		return nil, errors.New("nil records callback")
	}
	filter := func(c Change) bool { return c.Collection == CheckIns }
	return m.feed.subscribe(filter, func(Change) {
		onUpdate(m.selectRecords(func(attendance.Record) bool { return true }))
	}, true), nil
}

func (m *MemoryAttendance) List(ctx context.Context) ([]attendance.Record, error) {
	return m.selectRecords(func(attendance.Record) bool { return true }), nil
}

func (m *MemoryAttendance) ListRange(ctx context.Context, from, to time.Time) ([]attendance.Record, error) {
	return m.selectRecords(func(r attendance.Record) bool {
		return !r.CheckInTime.Before(from) && r.CheckInTime.Before(to)
	}), nil
}

func (m *MemoryAttendance) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.records)), nil
}

func (m *MemoryAttendance) Insert(ctx context.Context, records []attendance.Record) error {
	changes := make([]Change, 0, len(records))

	m.mu.Lock()
	for _, r := range records {
		if _, exists := m.records[r.ID]; exists && r.ID != "" {
			m.mu.Unlock()
			return fmt.Errorf("record %s: %w", r.ID, ErrDuplicate)
		}
	}
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.DailyKey == "" {
			r.DailyKey = dailykey.Build(r.WorkerID, r.CheckInTime, m.opts.Location)
		}
		m.seq++
		r.Seq = m.seq
		m.records[r.ID] = r
		changes = append(changes, Change{Collection: CheckIns, Kind: ChildAdded, ID: r.ID, Key: r.DailyKey})
	}
	m.mu.Unlock()

	m.feed.Publish(changes...)
	return nil
}

func (m *MemoryAttendance) byKey(key string) []attendance.Record {
	return m.selectRecords(func(r attendance.Record) bool { return r.DailyKey == key })
}

func (m *MemoryAttendance) selectRecords(keep func(attendance.Record) bool) []attendance.Record {
	m.mu.Lock()
	out := make([]attendance.Record, 0, len(m.records))
	for _, r := range m.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	m.mu.Unlock()

	attendance.SortNewestFirst(out)
	return out
}

// MemoryWorksites keeps worksites in creation order
type MemoryWorksites struct {
	feed *Feed

	mu    sync.Mutex
	sites []geofence.Worksite
}

// NewMemoryWorksites creates an in-memory worksite store holding sites.
// Sites with an invalid boundary are rejected.
func NewMemoryWorksites(feed *Feed, sites ...geofence.Worksite) (*MemoryWorksites, error) {
	m := &MemoryWorksites{feed: feed}
	for _, s := range sites {
		if err := validateBoundary(s.Name, s.Boundary); err != nil {
			return nil, fmt.Errorf("worksite %q: %w", s.Name, err)
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		m.sites = append(m.sites, s)
	}
	return m, nil
}

func (m *MemoryWorksites) List(ctx context.Context) ([]geofence.Worksite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]geofence.Worksite, len(m.sites))
	copy(out, m.sites)
	return out, nil
}

func (m *MemoryWorksites) Get(ctx context.Context, id string) (geofence.Worksite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		return m.sites[i], nil
	}
	return geofence.Worksite{}, ErrNotFound
}

func (m *MemoryWorksites) Create(ctx context.Context, name string, boundary []geofence.Coordinate) (geofence.Worksite, error) {
	if err := validateBoundary(name, boundary); err != nil {
		return geofence.Worksite{}, err
	}
	m.mu.Lock()
	for _, s := range m.sites {
		if s.Name == name {
			m.mu.Unlock()
			return geofence.Worksite{}, fmt.Errorf("worksite %q: %w", name, ErrDuplicate)
		}
	}
	site := geofence.Worksite{ID: uuid.NewString(), Name: name, Boundary: boundary}
	m.sites = append(m.sites, site)
	m.mu.Unlock()

	m.feed.Publish(Change{Collection: Worksites, Kind: ChildAdded, ID: site.ID, Key: site.Name})
	return site, nil
}

func (m *MemoryWorksites) Update(ctx context.Context, id, name string, boundary []geofence.Coordinate) (geofence.Worksite, error) {
	if err := validateBoundary(name, boundary); err != nil {
		return geofence.Worksite{}, err
	}
	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return geofence.Worksite{}, ErrNotFound
	}
	for _, s := range m.sites {
		if s.Name == name && s.ID != id {
			m.mu.Unlock()
			return geofence.Worksite{}, fmt.Errorf("worksite %q: %w", name, ErrDuplicate)
		}
	}
	m.sites[i].Name = name
	m.sites[i].Boundary = boundary
	site := m.sites[i]
	m.mu.Unlock()

	m.feed.Publish(Change{Collection: Worksites, Kind: ChildChanged, ID: site.ID, Key: site.Name})
	return site, nil
}

func (m *MemoryWorksites) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return ErrNotFound
	}
	site := m.sites[i]
	m.sites = append(m.sites[:i], m.sites[i+1:]...)
	m.mu.Unlock()

	m.feed.Publish(Change{Collection: Worksites, Kind: ChildRemoved, ID: site.ID, Key: site.Name})
	return nil
}

func (m *MemoryWorksites) Subscribe(onChange func(Change)) func() {
	return m.feed.Subscribe(func(c Change) bool { return c.Collection == Worksites }, onChange)
}

func (m *MemoryWorksites) indexLocked(id string) int {
	for i, s := range m.sites {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// MemoryUsers keeps accounts in process memory
type MemoryUsers struct {
	now func() time.Time

	mu     sync.Mutex
	users  map[string]models.User
	logIns []models.LogIn
}

// NewMemoryUsers creates an empty in-memory user store
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{now: time.Now, users: make(map[string]models.User)}
}

func (m *MemoryUsers) Create(ctx context.Context, u *models.User) error {
	if err := u.BeforeCreate(nil); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("email %s: %w", u.Email, ErrDuplicate)
		}
	}
	if _, exists := m.users[u.ID]; exists {
		return fmt.Errorf("user %s: %w", u.ID, ErrDuplicate)
	}
	now := m.now()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryUsers) List(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	m.mu.Lock()
	all := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, u)
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].Email < all[j].Email
	})
	total := int64(len(all))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []models.User{}, total, nil
	}
	end := len(all)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (m *MemoryUsers) UpdateRole(ctx context.Context, id, role string) error {
	return m.update(id, func(u *models.User) { u.Role = role })
}

func (m *MemoryUsers) SetPhotoURL(ctx context.Context, id, url string) error {
	return m.update(id, func(u *models.User) { u.PhotoURL = url })
}

func (m *MemoryUsers) RecordLogIn(ctx context.Context, id string, at time.Time) error {
	if err := m.update(id, func(u *models.User) { u.LastLogin = &at }); err != nil {
		return err
	}
	m.mu.Lock()
	m.logIns = append(m.logIns, models.LogIn{ID: uint(len(m.logIns) + 1), UserID: id, LogInDateTime: at})
	m.mu.Unlock()
	return nil
}

// LogIns returns the recorded sign-ins in order
func (m *MemoryUsers) LogIns() []models.LogIn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.LogIn, len(m.logIns))
	copy(out, m.logIns)
	return out
}

func (m *MemoryUsers) update(id string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = m.now()
	m.users[id] = u
	return nil
}
