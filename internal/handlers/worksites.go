package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/xelth-com/geoattend/internal/geofence"
	"github.com/xelth-com/geoattend/internal/report"
	"github.com/xelth-com/geoattend/internal/store"
)

// WorksiteRequest is the body of create and update
type WorksiteRequest struct {
	Name        string                `json:"name"`
	Coordinates []geofence.Coordinate `json:"coordinates"`
}

func (r *Router) listWorksites(w http.ResponseWriter, req *http.Request) {
	sites, err := r.worksites.List(req.Context())
	if err != nil {
		log.Printf("❌ Worksites: list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch worksites")
		return
	}
	respondJSON(w, http.StatusOK, sites)
}

func (r *Router) createWorksite(w http.ResponseWriter, req *http.Request) {
	body, ok := decodeWorksite(w, req)
	if !ok {
		return
	}
	site, err := r.worksites.Create(req.Context(), body.Name, body.Coordinates)
	if err != nil {
		respondWorksiteError(w, err)
		return
	}
	log.Printf("🗺️ Worksites: created %s", site.Name)
	respondJSON(w, http.StatusCreated, site)
}

func (r *Router) updateWorksite(w http.ResponseWriter, req *http.Request) {
	body, ok := decodeWorksite(w, req)
	if !ok {
		return
	}
	site, err := r.worksites.Update(req.Context(), mux.Vars(req)["id"], body.Name, body.Coordinates)
	if err != nil {
		respondWorksiteError(w, err)
		return
	}
	log.Printf("🗺️ Worksites: updated %s", site.Name)
	respondJSON(w, http.StatusOK, site)
}

func (r *Router) deleteWorksite(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	if err := r.worksites.Delete(req.Context(), id); err != nil {
		respondWorksiteError(w, err)
		return
	}
	log.Printf("🗺️ Worksites: deleted %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// worksitePoster renders a printable page with the QR link to the check-in screen
func (r *Router) worksitePoster(w http.ResponseWriter, req *http.Request) {
	site, err := r.worksites.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		respondWorksiteError(w, err)
		return
	}
	data, err := report.WorksitePoster(site, report.CheckInURL(r.publicURL, site))
	if err != nil {
		log.Printf("❌ Worksites: poster for %s failed: %v", site.Name, err)
		respondError(w, http.StatusInternalServerError, "Failed to build poster")
		return
	}
	respondFile(w, "application/pdf", posterFilename(site.Name), data)
}

func decodeWorksite(w http.ResponseWriter, req *http.Request) (WorksiteRequest, bool) {
	var body WorksiteRequest
	if err := decodeJSON(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return body, false
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		respondError(w, http.StatusBadRequest, "Worksite name is required")
		return body, false
	}
	if err := geofence.ValidateBoundary(body.Coordinates); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return body, false
	}
	return body, true
}

func respondWorksiteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Worksite not found")
	case errors.Is(err, store.ErrDuplicate):
		respondError(w, http.StatusConflict, "A worksite with this name already exists")
	default:
		log.Printf("❌ Worksites: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to save worksite")
	}
}

func posterFilename(name string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + 'a' - 'A'
		}
		return '-'
	}, name)
	return fmt.Sprintf("worksite-%s.pdf", strings.Trim(slug, "-"))
}
