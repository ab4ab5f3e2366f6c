package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/caducee-health/caducee/internal/places"
)

const defaultSearchRadiusMeters = 3000

func (s *Server) nearbyDoctors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat must be a number")
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lng must be a number")
		return
	}
	radius := defaultSearchRadiusMeters
	if raw := q.Get("radius"); raw != "" {
		radius, err = strconv.Atoi(raw)
		if err != nil || radius <= 0 {
			writeError(w, http.StatusBadRequest, "radius must be a positive integer")
			return
		}
	}

	doctors, err := s.doctors.Nearby(r.Context(), lat, lng, radius)
	if err != nil {
		if errors.Is(err, places.ErrUnconfigured) {
			s.logger.Error("doctor search rejected: places credential missing")
			writeError(w, http.StatusInternalServerError, "doctor search is not configured")
			return
		}
		s.logger.Error("doctor search failed", "error", err)
		writeError(w, http.StatusBadGateway, "doctor search unavailable")
		return
	}

	writeJSON(w, http.StatusOK, doctors)
}
