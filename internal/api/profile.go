package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/caducee-health/caducee/internal/auth"
	"github.com/caducee-health/caducee/internal/store"
)

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	profile, err := s.store.GetProfile(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no profile yet")
			return
		}
		s.logger.Error("failed to load profile", "user", identity.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "profile unavailable")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	var profile store.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	profile.UserID = identity.UserID

	if err := s.store.UpsertProfile(r.Context(), profile); err != nil {
		s.logger.Error("failed to save profile", "user", identity.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
