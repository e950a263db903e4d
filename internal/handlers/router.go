package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/xelth-com/geoattend/internal/admin"
	"github.com/xelth-com/geoattend/internal/attendance"
	"github.com/xelth-com/geoattend/internal/buildinfo"
	"github.com/xelth-com/geoattend/internal/identity"
	"github.com/xelth-com/geoattend/internal/media"
	"github.com/xelth-com/geoattend/internal/metrics"
	"github.com/xelth-com/geoattend/internal/middleware"
	"github.com/xelth-com/geoattend/internal/models"
	"github.com/xelth-com/geoattend/internal/realtime"
	"github.com/xelth-com/geoattend/internal/store"
)

// Options are the router's collaborators. Metrics, Hub and Media are optional.
type Options struct {
	Identity  *identity.Service
	Admin     *admin.Service
	Users     store.UserStore
	Records   store.AttendanceStore
	Worksites store.WorksiteStore
	Machines  *attendance.Registry
	Hub       *realtime.Hub
	Media     *media.Storage
	Metrics   *metrics.Metrics

	Location  *time.Location
	PublicURL string
	// Production disables the demo data generator
	Production bool
	Now        func() time.Time
}

// Router wraps the mux router and the services behind it
type Router struct {
	*mux.Router

	identity   *identity.Service
	admin      *admin.Service
	users      store.UserStore
	records    store.AttendanceStore
	worksites  store.WorksiteStore
	machines   *attendance.Registry
	hub        *realtime.Hub
	media      *media.Storage
	metrics    *metrics.Metrics
	loc        *time.Location
	publicURL  string
	production bool
	now        func() time.Time
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(opts Options) *Router {
	r := &Router{
		Router:     mux.NewRouter(),
		identity:   opts.Identity,
		admin:      opts.Admin,
		users:      opts.Users,
		records:    opts.Records,
		worksites:  opts.Worksites,
		machines:   opts.Machines,
		hub:        opts.Hub,
		media:      opts.Media,
		metrics:    opts.Metrics,
		loc:        opts.Location,
		publicURL:  opts.PublicURL,
		production: opts.Production,
		now:        opts.Now,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.loc == nil {
		r.loc = time.UTC
	}

	authenticated := middleware.AuthMiddleware(r.identity)
	managers := middleware.RequireRole(models.RoleManager, models.RoleAdmin)
	admins := middleware.RequireRole(models.RoleAdmin)

	if r.metrics != nil {
		r.Use(r.metrics.Middleware)
		r.Handle("/metrics", r.metrics.Handler()).Methods("GET")
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")
	auth.HandleFunc("/logout", r.logout).Methods("POST")
	auth.Handle("/me", authenticated(http.HandlerFunc(r.me))).Methods("GET")

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authenticated)

	api.HandleFunc("/attendance/today", r.today).Methods("GET")
	api.HandleFunc("/attendance/check-in", r.checkIn).Methods("POST")
	api.HandleFunc("/attendance/check-out", r.checkOut).Methods("POST")
	api.Handle("/attendance", managers(http.HandlerFunc(r.listAttendance))).Methods("GET")
	api.Handle("/attendance/export.xlsx", managers(http.HandlerFunc(r.exportXLSX))).Methods("GET")
	api.Handle("/attendance/export.pdf", managers(http.HandlerFunc(r.exportPDF))).Methods("GET")
	api.Handle("/dashboard", managers(http.HandlerFunc(r.dashboard))).Methods("GET")

	api.HandleFunc("/worksites", r.listWorksites).Methods("GET")
	api.Handle("/worksites", admins(http.HandlerFunc(r.createWorksite))).Methods("POST")
	api.Handle("/worksites/{id}", admins(http.HandlerFunc(r.updateWorksite))).Methods("PUT")
	api.Handle("/worksites/{id}", admins(http.HandlerFunc(r.deleteWorksite))).Methods("DELETE")
	api.HandleFunc("/worksites/{id}/poster.pdf", r.worksitePoster).Methods("GET")

	api.Handle("/admin/users", admins(http.HandlerFunc(r.listUsers))).Methods("GET")
	api.Handle("/admin/roles", admins(http.HandlerFunc(r.updateRoles))).Methods("POST")
	api.Handle("/admin/dummy-check-ins", admins(http.HandlerFunc(r.dummyCheckIns))).Methods("POST")

	if r.media != nil {
		api.HandleFunc("/profile/photo", r.uploadPhoto).Methods("POST")
		r.PathPrefix(media.URLPrefix).Handler(r.media.Handler()).Methods("GET")
	}

	if r.hub != nil {
		r.Handle("/ws", authenticated(http.HandlerFunc(r.serveWs))).Methods("GET")
	}

	return r
}

// Handler adds CORS and access logging around the routes
func (r *Router) Handler() http.Handler {
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{"*"}),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	return gorillahandlers.CombinedLoggingHandler(os.Stdout, cors(r.Router))
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"time":   r.now().UTC().Format(time.RFC3339),
		"build":  buildinfo.Current(r.now()),
	}
	if r.machines != nil {
		status["machines"] = r.machines.Len()
	}
	if r.hub != nil {
		status["clients"] = r.hub.Len()
	}
	respondJSON(w, http.StatusOK, status)
}

func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	realtime.ServeWs(r.hub, middleware.UserFrom(req.Context()), w, req)
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(req *http.Request, v interface{}) error {
	err := json.NewDecoder(req.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondFile sends a generated download
func respondFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
