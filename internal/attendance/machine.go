package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/xelth-com/geoattend/internal/dailykey"
	"github.com/xelth-com/geoattend/internal/geofence"
	"github.com/xelth-com/geoattend/internal/location"
)

var (
	ErrTransitionInProgress = errors.New("a check-in or check-out is already in progress")
	ErrInvalidTransition    = errors.New("transition not allowed from the current status")
	ErrNoWorksite           = errors.New("current location is not at a work site")
	ErrWrongWorksite        = errors.New("current location is not the work site checked into")
	ErrStale                = errors.New("attendance changed while the location was being acquired")
	ErrMachineClosed        = errors.New("attendance session closed")
)

// Locator acquires one position per call and reports the resulting GpsStatus
type Locator interface {
	Acquire(ctx context.Context) (geofence.Coordinate, error)
	Status() location.GpsStatus
}

// Outcome is the result of one check-in or check-out attempt
type Outcome struct {
	Kind          Kind               `json:"kind"`
	Accepted      bool               `json:"accepted"`
	Status        Status             `json:"status"`
	GpsStatus     location.GpsStatus `json:"gpsStatus"`
	GpsSite       string             `json:"gpsSite,omitempty"`
	CheckedInSite string             `json:"checkedInSite,omitempty"`
	RecordID      string             `json:"recordId,omitempty"`
	Message       string             `json:"message,omitempty"`
	StatusMessage string             `json:"statusMessage,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	Err           error              `json:"-"`
}

// Transition is reported to observers after every attempt
type Transition struct {
	WorkerID string
	DailyKey string
	At       time.Time
	Outcome  Outcome
}

// Observer receives transitions; it must not block
type Observer interface {
	ObserveTransition(Transition)
}

// State is a point-in-time view of a machine
type State struct {
	Status        Status             `json:"status"`
	GpsStatus     location.GpsStatus `json:"gpsStatus"`
	GpsSite       string             `json:"gpsSite,omitempty"`
	CheckedInSite string             `json:"checkedInSite,omitempty"`
	RecordID      string             `json:"recordId,omitempty"`
	DailyKey      string             `json:"dailyKey,omitempty"`
	Records       []Record           `json:"records"`
	Message       string             `json:"message,omitempty"`
	StatusMessage string             `json:"statusMessage,omitempty"`
}

// Config carries a machine's collaborators
type Config struct {
	Store     Store
	Worksites Worksites
	Now       func() time.Time
	Observers []Observer
	// Location decides the calendar day, as it does for the store
	Location *time.Location
}

// Machine is the check-in/check-out state machine of one worker. The
// persisted truth comes only from the live subscription; the machine adds the
// transitional states and guards against overlapping transitions.
type Machine struct {
	workerID  string
	store     Store
	sites     Worksites
	now       func() time.Time
	loc       *time.Location
	observers []Observer

	mu          sync.Mutex
	status      Status
	base        Status // last status derived from a snapshot
	openID      string
	openSite    string
	dailyKey    string
	records     []Record
	gps         location.GpsStatus
	gpsSite     string
	expect      *expectation
	started     bool
	closed      bool
	unsubscribe func()

	ready     chan struct{}
	readyOnce sync.Once
}

// expectation is a record this machine just wrote. Snapshots that predate
// the write are dropped until one contains the record (closed, if closed is
// set). Records never reopen, so a later snapshot always meets it.
type expectation struct {
	id     string
	closed bool
}

func (e *expectation) metBy(s TodaySnapshot) bool {
	for _, r := range s.Records {
		if r.ID == e.id {
			return !e.closed || !r.Open()
		}
	}
	return false
}

// NewMachine builds a machine in the Loading state
func NewMachine(workerID string, cfg Config) *Machine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	loc := cfg.Location
	if loc == nil {
		var err error
		if loc, err = dailykey.LoadLocation(""); err != nil {
			loc = time.UTC
		}
	}
	return &Machine{
		workerID:  workerID,
		store:     cfg.Store,
		sites:     cfg.Worksites,
		now:       now,
		loc:       loc,
		observers: cfg.Observers,
		status:    Loading,
		base:      Loading,
		gps:       location.GpsOff,
		ready:     make(chan struct{}),
	}
}

// WorkerID returns the worker this machine tracks
func (m *Machine) WorkerID() string { return m.workerID }

// Start subscribes to the worker's records for today. The machine leaves
// Loading when the first snapshot arrives.
func (m *Machine) Start() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMachineClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	unsubscribe, err := m.store.SubscribeToday(m.workerID, m.applySnapshot)
	if err != nil {
		return fmt.Errorf("subscribe to today's attendance: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		unsubscribe()
		return ErrMachineClosed
	}
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
	return nil
}

// WaitReady blocks until the first snapshot has been applied
func (m *Machine) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the subscription. Late location results are ignored afterwards.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// State returns the current view
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]Record, len(m.records))
	copy(records, m.records)
	return State{
		Status:        m.status,
		GpsStatus:     m.gps,
		GpsSite:       m.gpsSite,
		CheckedInSite: m.openSite,
		RecordID:      m.openID,
		DailyKey:      m.dailyKey,
		Records:       records,
		Message:       GpsMessage(m.gps, m.gpsSite, m.openSite),
		StatusMessage: StatusMessage(m.status, m.openSite),
	}
}

func (m *Machine) applySnapshot(s TodaySnapshot) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.expect != nil {
		if !m.expect.metBy(s) {
			m.mu.Unlock()
			return
		}
		m.expect = nil
	}
	m.dailyKey = s.DailyKey
	m.records = s.Records
	m.base = s.Status
	m.openID = s.OpenRecordID
	m.openSite = s.OpenWorksite
	if !m.status.Transitioning() {
		m.status = s.Status
	}
	m.mu.Unlock()

	m.readyOnce.Do(func() { close(m.ready) })
}

// CheckIn runs checkedOut -> checkingIn -> checkedIn|checkedOut
func (m *Machine) CheckIn(ctx context.Context, loc Locator) Outcome {
	m.mu.Lock()
	if err := m.beginLocked(CheckedOut, CheckingIn); err != nil {
		out := m.outcomeLocked(KindCheckIn, err)
		m.mu.Unlock()
		return out
	}
	m.mu.Unlock()

	site, found, err := m.locate(ctx, loc)

	m.mu.Lock()
	m.gps, m.gpsSite = loc.Status(), site.Name
	if m.closed || m.status != CheckingIn {
		out := m.outcomeLocked(KindCheckIn, ErrStale)
		m.mu.Unlock()
		return m.report(out)
	}
	if err == nil && !found {
		err = ErrNoWorksite
	}
	if err == nil && m.openID != "" {
		err = ErrOpenRecordExists
	}
	at := m.now()
	if err == nil && !m.followsDayLocked(at) {
		// the subscription would never see a record keyed by the new day
		err = ErrStale
	}
	if err != nil {
		m.status = m.base
		out := m.outcomeLocked(KindCheckIn, err)
		m.mu.Unlock()
		return m.report(out)
	}
	m.mu.Unlock()

	id, err := m.store.WriteCheckIn(ctx, m.workerID, site.Name, at)

	m.mu.Lock()
	if err != nil {
		log.Printf("🔴 Attendance: check-in write failed for %s at %s: %v", m.workerID, site.Name, err)
		m.status = m.base
		out := m.outcomeLocked(KindCheckIn, err)
		m.mu.Unlock()
		return m.report(out)
	}
	m.status = CheckedIn
	m.openID, m.openSite = id, site.Name
	m.base = CheckedIn
	m.expect = &expectation{id: id}
	out := m.outcomeLocked(KindCheckIn, nil)
	out.Accepted = true
	m.mu.Unlock()

	log.Printf("✅ Attendance: %s checked in at %s (record %s)", m.workerID, site.Name, id)
	return m.report(out)
}

// CheckOut runs checkedIn -> checkingOut -> checkedOut|checkedIn. The worker
// must be inside the same worksite the open record was created at.
func (m *Machine) CheckOut(ctx context.Context, loc Locator) Outcome {
	m.mu.Lock()
	if err := m.beginLocked(CheckedIn, CheckingOut); err != nil {
		out := m.outcomeLocked(KindCheckOut, err)
		m.mu.Unlock()
		return out
	}
	openID, openSite := m.openID, m.openSite
	m.mu.Unlock()

	site, found, err := m.locate(ctx, loc)

	m.mu.Lock()
	m.gps, m.gpsSite = loc.Status(), site.Name
	if m.closed || m.status != CheckingOut || m.openID != openID {
		if !m.closed && m.status == CheckingOut {
			m.status = m.base
		}
		out := m.outcomeLocked(KindCheckOut, ErrStale)
		m.mu.Unlock()
		return m.report(out)
	}
	if err == nil && !found {
		err = ErrNoWorksite
	}
	if err == nil && site.Name != openSite {
		err = ErrWrongWorksite
	}
	if err != nil {
		m.status = m.base
		out := m.outcomeLocked(KindCheckOut, err)
		m.mu.Unlock()
		return m.report(out)
	}
	m.mu.Unlock()

	res, err := m.store.WriteCheckOut(ctx, openID, m.now())

	m.mu.Lock()
	if err != nil {
		log.Printf("🔴 Attendance: check-out write failed for %s record %s: %v", m.workerID, openID, err)
		m.status = m.base
		out := m.outcomeLocked(KindCheckOut, err)
		m.mu.Unlock()
		return m.report(out)
	}
	m.status = CheckedOut
	if m.openID == openID {
		m.openID, m.openSite = "", ""
	}
	m.base = CheckedOut
	if res.Closed {
		m.expect = &expectation{id: openID, closed: true}
	} else {
		// closed elsewhere or gone; no write of ours to wait for
		log.Printf("⏭️ Attendance: record %s was already closed or removed, nothing to do", openID)
		m.expect = nil
	}
	out := m.outcomeLocked(KindCheckOut, nil)
	out.Accepted = res.Closed
	out.RecordID = openID
	m.mu.Unlock()

	if res.Closed {
		log.Printf("✅ Attendance: %s checked out from %s (record %s)", m.workerID, openSite, openID)
	}
	return m.report(out)
}

// beginLocked moves from -> to, or explains why it cannot
func (m *Machine) beginLocked(from, to Status) error {
	switch {
	case m.closed:
		return ErrMachineClosed
	case m.status.Transitioning():
		return ErrTransitionInProgress
	case m.status != from:
		return fmt.Errorf("%w: %s", ErrInvalidTransition, m.status)
	}
	m.status = to
	return nil
}

// locate acquires a fix and evaluates it against the worksites. Location
// failures come back as errors; "no site" comes back as found=false.
func (m *Machine) locate(ctx context.Context, loc Locator) (geofence.Worksite, bool, error) {
	coord, err := loc.Acquire(ctx)
	if err != nil {
		log.Printf("⚠️ Attendance: location retrieval failed for %s: %v", m.workerID, err)
		return geofence.Worksite{}, false, err
	}

	sites, err := m.sites.List(ctx)
	if err != nil {
		return geofence.Worksite{}, false, fmt.Errorf("load worksites: %w", err)
	}

	site, found := geofence.Locate(coord, sites)
	return site, found, nil
}

// followsDayLocked reports whether at falls on the day the subscription follows
func (m *Machine) followsDayLocked(at time.Time) bool {
	_, day, ok := dailykey.Split(m.dailyKey)
	return !ok || day == dailykey.Day(at, m.loc)
}

func (m *Machine) outcomeLocked(kind Kind, err error) Outcome {
	out := Outcome{
		Kind:          kind,
		Status:        m.status,
		GpsStatus:     m.gps,
		GpsSite:       m.gpsSite,
		CheckedInSite: m.openSite,
		RecordID:      m.openID,
		Message:       GpsMessage(m.gps, m.gpsSite, m.openSite),
		StatusMessage: StatusMessage(m.status, m.openSite),
		Err:           err,
	}
	if err != nil {
		out.Reason = err.Error()
	}
	return out
}

func (m *Machine) report(out Outcome) Outcome {
	m.mu.Lock()
	key := m.dailyKey
	m.mu.Unlock()

	tr := Transition{WorkerID: m.workerID, DailyKey: key, At: m.now(), Outcome: out}
	for _, o := range m.observers {
		o.ObserveTransition(tr)
	}
	return out
}
