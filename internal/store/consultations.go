package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/caducee-health/caducee/internal/triage"
)

// SaveConsultation persists one concluded triage dialogue. Called exactly
// once per concluded session, keyed by owning identity.
func (s *Store) SaveConsultation(ctx context.Context, rec triage.ConsultationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO consultations (id, owner_id, symptoms, recommendation, severity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.OwnerID, rec.Symptoms, rec.Recommendation, string(rec.Severity), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	return nil
}

// ListConsultations returns the owner's consultations, newest first.
func (s *Store) ListConsultations(ctx context.Context, ownerID uuid.UUID) ([]triage.ConsultationRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, symptoms, recommendation, severity, created_at
		FROM consultations
		WHERE owner_id = $1
		ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query consultations: %w", err)
	}
	defer rows.Close()

	var out []triage.ConsultationRecord
	for rows.Next() {
		var rec triage.ConsultationRecord
		var severity string
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Symptoms, &rec.Recommendation, &severity, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		rec.Severity = triage.Severity(severity)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consultations: %w", err)
	}
	return out, nil
}
