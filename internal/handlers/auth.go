package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/xelth-com/geoattend/internal/identity"
	"github.com/xelth-com/geoattend/internal/middleware"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles user login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var body LoginRequest
	if err := decodeJSON(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	session, err := r.identity.SignIn(req.Context(), body.Email, body.Password)
	if err != nil {
		respondIdentityError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// register handles user registration
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	var body RegisterRequest
	if err := decodeJSON(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	session, err := r.identity.Register(req.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		respondIdentityError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// logout is a client-side token discard; the endpoint only acknowledges it
func (r *Router) logout(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) me(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, middleware.UserFrom(req.Context()))
}

func respondIdentityError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrWeakPassword):
		status = http.StatusBadRequest
	case errors.Is(err, identity.ErrEmailInUse):
		status = http.StatusConflict
	default:
		log.Printf("❌ Auth: %v", err)
	}
	respondError(w, status, identity.Message(err))
}
