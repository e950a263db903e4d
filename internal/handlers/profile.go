package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/xelth-com/geoattend/internal/media"
	"github.com/xelth-com/geoattend/internal/middleware"
)

// photoField is the multipart field carrying the image
const photoField = "photo"

// uploadPhoto stores the caller's profile photo and records its URL
func (r *Router) uploadPhoto(w http.ResponseWriter, req *http.Request) {
	user := middleware.UserFrom(req.Context())

	req.Body = http.MaxBytesReader(w, req.Body, media.MaxPhotoBytes+1<<20)
	file, _, err := req.FormFile(photoField)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Photo file is required")
		return
	}
	defer file.Close()

	url, err := r.media.Upload(req.Context(), media.PhotoName(user.ID), file)
	switch {
	case errors.Is(err, media.ErrTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "Photo is too large")
		return
	case errors.Is(err, media.ErrUnsupported):
		respondError(w, http.StatusUnsupportedMediaType, "Photo must be a JPEG, PNG, WebP or GIF image")
		return
	case err != nil:
		log.Printf("❌ Profile: photo upload for %s failed: %v", user.ID, err)
		respondError(w, http.StatusInternalServerError, "Failed to store photo")
		return
	}

	if err := r.users.SetPhotoURL(req.Context(), user.ID, url); err != nil {
		log.Printf("❌ Profile: saving photo URL for %s failed: %v", user.ID, err)
		respondError(w, http.StatusInternalServerError, "Failed to store photo")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"photoURL": url})
}
