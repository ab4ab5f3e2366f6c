package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/caducee-health/caducee/internal/auth"
	"github.com/caducee-health/caducee/internal/gemini"
	"github.com/caducee-health/caducee/internal/store"
	"github.com/caducee-health/caducee/internal/triage"
)

type startTriageRequest struct {
	Symptoms string `json:"symptoms"`
}

type advanceTriageRequest struct {
	Symptoms string        `json:"symptoms"`
	History  []triage.Turn `json:"history"`
}

func (s *Server) startTriage(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	var req startTriageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		writeError(w, http.StatusBadRequest, "symptoms description is required")
		return
	}

	analysis, err := s.triage.Start(r.Context(), req.Symptoms, s.profileContext(r.Context(), identity.UserID))
	if err != nil {
		s.writeTriageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) advanceTriage(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	var req advanceTriageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		writeError(w, http.StatusBadRequest, "symptoms description is required")
		return
	}
	if len(req.History) == 0 {
		writeError(w, http.StatusBadRequest, "history must contain at least one answered question")
		return
	}

	outcome, err := s.triage.Advance(r.Context(), identity.UserID, req.Symptoms, req.History, s.profileContext(r.Context(), identity.UserID))
	if err != nil {
		s.writeTriageError(w, err)
		return
	}

	resp := map[string]any{}
	if outcome.Decision.Ask != nil {
		resp["next_question"] = outcome.Decision.Ask.Text
		resp["answer_type"] = outcome.Decision.Ask.AnswerType
	} else {
		resp["severity_level"] = outcome.Decision.Final.Severity
		resp["final_recommendation"] = outcome.Decision.Final.Recommendation
		if outcome.StorageErr != nil {
			// The decision stands; only the archive write failed.
			resp["warning"] = "consultation could not be saved"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listConsultations(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	consultations, err := s.store.ListConsultations(r.Context(), identity.UserID)
	if err != nil {
		s.logger.Error("failed to list consultations", "user", identity.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "consultations unavailable")
		return
	}
	if consultations == nil {
		consultations = []triage.ConsultationRecord{}
	}
	writeJSON(w, http.StatusOK, consultations)
}

// profileContext loads the caller's profile as an opaque prompt block. A
// missing profile is not an error: triage runs without context.
func (s *Server) profileContext(ctx context.Context, userID uuid.UUID) string {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("failed to load profile for triage", "user", userID, "error", err)
		}
		return ""
	}
	return profile.ContextBlock()
}

// writeTriageError maps triage failures onto the external contract: a missing
// credential is a server misconfiguration, everything else in the oracle path
// degrades to one generic message. Internal kinds are logged, not exposed.
func (s *Server) writeTriageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gemini.ErrUnconfigured):
		s.logger.Error("triage rejected: oracle credential missing")
		writeError(w, http.StatusInternalServerError, "analysis service is not configured")
	case errors.Is(err, triage.ErrContractViolation):
		s.logger.Error("triage failed: contract violation", "error", err)
		writeError(w, http.StatusBadGateway, "AI communication error")
	default:
		s.logger.Error("triage failed", "error", err)
		writeError(w, http.StatusBadGateway, "AI communication error")
	}
}
