package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/xelth-com/geoattend/internal/admin"
)

// defaultDummyDays is how far back the demo generator goes when not told
const defaultDummyDays = 30

// listUsers returns one page of the role table
func (r *Router) listUsers(w http.ResponseWriter, req *http.Request) {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	users, err := r.admin.ListUsers(req.Context(), page)
	if err != nil {
		log.Printf("❌ Admin: list users failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// updateRoles applies a {userId: role} map
func (r *Router) updateRoles(w http.ResponseWriter, req *http.Request) {
	var roles map[string]string
	if err := decodeJSON(req, &roles); err != nil || len(roles) == 0 {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	result, err := r.admin.UpdateRoles(req.Context(), roles)
	if err != nil {
		log.Printf("❌ Admin: update roles failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to update roles")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// dummyCheckIns fills an empty attendance table with generated sessions.
// It is disabled in production.
func (r *Router) dummyCheckIns(w http.ResponseWriter, req *http.Request) {
	if r.production {
		respondError(w, http.StatusForbidden, "Dummy data is disabled in production")
		return
	}

	var body struct {
		Days int    `json:"days"`
		Seed *int64 `json:"seed"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if body.Days == 0 {
		body.Days = defaultDummyDays
	}
	if body.Days < 0 || body.Days > admin.MaxDummyDays {
		respondError(w, http.StatusBadRequest, admin.ErrDaysOutOfRange.Error())
		return
	}
	seed := time.Now().UnixNano()
	if body.Seed != nil {
		seed = *body.Seed
	}

	n, err := r.admin.GenerateDummyCheckIns(req.Context(), body.Days, seed)
	if errors.Is(err, admin.ErrHasData) || errors.Is(err, admin.ErrNoWorksites) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		log.Printf("❌ Admin: dummy check-ins failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to generate check-ins")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int{"created": n})
}
