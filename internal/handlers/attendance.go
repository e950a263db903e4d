package handlers

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/xelth-com/geoattend/internal/attendance"
	"github.com/xelth-com/geoattend/internal/dailykey"
	"github.com/xelth-com/geoattend/internal/location"
	"github.com/xelth-com/geoattend/internal/middleware"
	"github.com/xelth-com/geoattend/internal/report"
)

// machineReadyTimeout bounds the wait for a worker's first snapshot
const machineReadyTimeout = 10 * time.Second

// maxExportDays caps the export window
const maxExportDays = 366

// withMachine runs fn on the caller's attendance machine
func (r *Router) withMachine(w http.ResponseWriter, req *http.Request, fn func(*attendance.Machine)) {
	user := middleware.UserFrom(req.Context())

	ctx, cancel := context.WithTimeout(req.Context(), machineReadyTimeout)
	defer cancel()
	m, release, err := r.machines.Acquire(ctx, user.ID)
	if err != nil {
		log.Printf("❌ Attendance: machine for %s not ready: %v", user.ID, err)
		respondError(w, http.StatusServiceUnavailable, "Attendance is still loading. Please try again.")
		return
	}
	defer release()
	fn(m)
}

func (r *Router) today(w http.ResponseWriter, req *http.Request) {
	r.withMachine(w, req, func(m *attendance.Machine) {
		respondJSON(w, http.StatusOK, m.State())
	})
}

func (r *Router) checkIn(w http.ResponseWriter, req *http.Request) {
	r.transition(w, req, (*attendance.Machine).CheckIn)
}

func (r *Router) checkOut(w http.ResponseWriter, req *http.Request) {
	r.transition(w, req, (*attendance.Machine).CheckOut)
}

// transition replays the client's location report through a fresh adapter
// and runs one check-in or check-out with it
func (r *Router) transition(w http.ResponseWriter, req *http.Request, run func(*attendance.Machine, context.Context, attendance.Locator) attendance.Outcome) {
	var body location.Report
	if err := decodeJSON(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid location report")
		return
	}

	var observe func(location.GpsStatus)
	if r.metrics != nil {
		observe = r.metrics.ObserveGps
	}
	loc := location.NewAdapter(body.Platform(), observe)

	r.withMachine(w, req, func(m *attendance.Machine) {
		out := run(m, req.Context(), loc)
		respondJSON(w, outcomeStatus(out.Err), out)
	})
}

func outcomeStatus(err error) int {
	var locErr *location.Error
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &locErr),
		errors.Is(err, attendance.ErrNoWorksite),
		errors.Is(err, attendance.ErrWrongWorksite):
		return http.StatusUnprocessableEntity
	case errors.Is(err, attendance.ErrTransitionInProgress),
		errors.Is(err, attendance.ErrInvalidTransition),
		errors.Is(err, attendance.ErrOpenRecordExists),
		errors.Is(err, attendance.ErrStale):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrMachineClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// listAttendance returns one page of the attendance table, newest first
func (r *Router) listAttendance(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perPage"))

	records, err := r.records.List(req.Context())
	if err != nil {
		log.Printf("❌ Attendance: list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to load attendance")
		return
	}
	profiles, err := r.profiles(req.Context())
	if err != nil {
		log.Printf("❌ Attendance: load profiles failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to load attendance")
		return
	}

	slice, info := report.Page(records, page, perPage)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rows":           report.Rows(slice, profiles, r.now(), r.loc),
		"page":           info,
		"perPageOptions": report.PerPageOptions,
	})
}

func (r *Router) dashboard(w http.ResponseWriter, req *http.Request) {
	now := r.now()
	from, to := dailykey.Window(now, r.loc, report.DashboardDays)
	records, err := r.records.ListRange(req.Context(), from, to)
	if err != nil {
		log.Printf("❌ Dashboard: list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	respondJSON(w, http.StatusOK, report.BuildDashboard(records, now, r.loc))
}

func (r *Router) exportXLSX(w http.ResponseWriter, req *http.Request) {
	rows, ok := r.exportRows(w, req)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, rows); err != nil {
		log.Printf("❌ Export: xlsx failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to build export")
		return
	}
	respondFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "attendance.xlsx", buf.Bytes())
}

func (r *Router) exportPDF(w http.ResponseWriter, req *http.Request) {
	rows, ok := r.exportRows(w, req)
	if !ok {
		return
	}
	data, err := report.TimesheetPDF("Attendance "+report.ShowCurrDate(r.now(), r.loc), rows)
	if err != nil {
		log.Printf("❌ Export: pdf failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to build export")
		return
	}
	respondFile(w, "application/pdf", "attendance.pdf", data)
}

// exportRows loads the last `days` days (default one week) as table rows
func (r *Router) exportRows(w http.ResponseWriter, req *http.Request) ([]report.Row, bool) {
	days := report.DashboardDays
	if v := req.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxExportDays {
			respondError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return nil, false
		}
		days = n
	}

	now := r.now()
	from, to := dailykey.Window(now, r.loc, days)
	records, err := r.records.ListRange(req.Context(), from, to)
	if err != nil {
		log.Printf("❌ Export: list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to build export")
		return nil, false
	}
	profiles, err := r.profiles(req.Context())
	if err != nil {
		log.Printf("❌ Export: load profiles failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to build export")
		return nil, false
	}
	return report.Rows(records, profiles, now, r.loc), true
}

// profilePageSize is the batch size used to load every user's display data
const profilePageSize = 500

func (r *Router) profiles(ctx context.Context) (map[string]report.Profile, error) {
	profiles := make(map[string]report.Profile)
	for offset := 0; ; offset += profilePageSize {
		users, total, err := r.users.List(ctx, offset, profilePageSize)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			profiles[u.ID] = report.Profile{Name: u.Name, PhotoURL: u.PhotoURL}
		}
		if len(users) == 0 || int64(offset+len(users)) >= total {
			return profiles, nil
		}
	}
}
