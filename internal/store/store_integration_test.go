//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/caducee-health/caducee/internal/triage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_UserLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	email := "it-" + uuid.New().String()[:8] + "@example.com"

	id, err := s.CreateUser(ctx, email, "$2a$10$fakehash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected non-nil user ID")
	}

	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if u.ID != id {
		t.Errorf("expected ID %s, got %s", id, u.ID)
	}

	if _, err := s.CreateUser(ctx, email, "$2a$10$otherhash"); err != ErrEmailTaken {
		t.Errorf("expected ErrEmailTaken on duplicate email, got %v", err)
	}
}

func TestIntegration_ProfileUpsert(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	email := "it-" + uuid.New().String()[:8] + "@example.com"
	userID, err := s.CreateUser(ctx, email, "$2a$10$fakehash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	p := Profile{UserID: userID, Age: 34, Sex: "F", Allergies: "penicillin"}
	if err := s.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}

	p.Age = 35
	if err := s.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("second UpsertProfile failed: %v", err)
	}

	got, err := s.GetProfile(ctx, userID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.Age != 35 {
		t.Errorf("expected age 35 after upsert, got %d", got.Age)
	}
}

func TestIntegration_ConsultationsNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	email := "it-" + uuid.New().String()[:8] + "@example.com"
	owner, err := s.CreateUser(ctx, email, "$2a$10$fakehash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	older := triage.ConsultationRecord{
		ID:             uuid.New(),
		OwnerID:        owner,
		Symptoms:       "headache",
		Recommendation: "rest",
		Severity:       triage.SeverityMild,
		CreatedAt:      time.Now().UTC().Add(-time.Hour),
	}
	newer := triage.ConsultationRecord{
		ID:             uuid.New(),
		OwnerID:        owner,
		Symptoms:       "chest pain",
		Recommendation: "seek emergency care",
		Severity:       triage.SeverityUrgent,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.SaveConsultation(ctx, older); err != nil {
		t.Fatalf("SaveConsultation failed: %v", err)
	}
	if err := s.SaveConsultation(ctx, newer); err != nil {
		t.Fatalf("SaveConsultation failed: %v", err)
	}

	list, err := s.ListConsultations(ctx, owner)
	if err != nil {
		t.Fatalf("ListConsultations failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 consultations, got %d", len(list))
	}
	if list[0].ID != newer.ID {
		t.Errorf("expected newest consultation first, got %s", list[0].Symptoms)
	}
	if list[1].Severity != triage.SeverityMild {
		t.Errorf("expected severity %q, got %q", triage.SeverityMild, list[1].Severity)
	}
}
