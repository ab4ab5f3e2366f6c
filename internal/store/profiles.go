package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Profile is the optional patient context attached to a user. The triage core
// never parses it; it only sees the rendered text block.
type Profile struct {
	UserID         uuid.UUID `json:"-"`
	Age            int       `json:"age"`
	Sex            string    `json:"sex"`
	MedicalHistory string    `json:"medical_history"`
	Allergies      string    `json:"allergies"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ContextBlock renders the profile as the opaque text block injected into
// triage prompts. Empty fields are omitted.
func (p *Profile) ContextBlock() string {
	var lines []string
	if p.Age > 0 {
		lines = append(lines, fmt.Sprintf("Age: %d", p.Age))
	}
	if p.Sex != "" {
		lines = append(lines, "Sex: "+p.Sex)
	}
	if p.MedicalHistory != "" {
		lines = append(lines, "Medical history: "+p.MedicalHistory)
	}
	if p.Allergies != "" {
		lines = append(lines, "Allergies: "+p.Allergies)
	}
	return strings.Join(lines, "\n")
}

func (s *Store) UpsertProfile(ctx context.Context, p Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, age, sex, medical_history, allergies, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id) DO UPDATE SET
			age = $2, sex = $3, medical_history = $4, allergies = $5, updated_at = now()`,
		p.UserID, p.Age, p.Sex, p.MedicalHistory, p.Allergies,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, age, sex, medical_history, allergies, updated_at
		FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.Age, &p.Sex, &p.MedicalHistory, &p.Allergies, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &p, nil
}
