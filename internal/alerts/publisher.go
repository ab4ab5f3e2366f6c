// Package alerts publishes triage lifecycle events on NATS so downstream
// consumers (care-team dashboards, urgent-case pagers) can react to concluded
// dialogues. The publisher is optional: without a NATS URL the service runs
// with alerts disabled.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/caducee-health/caducee/internal/triage"
)

// SubjectTriageConcluded carries one event per concluded triage dialogue.
const SubjectTriageConcluded = "caducee.triage.concluded"

// ConcludedEvent is the wire payload for SubjectTriageConcluded.
type ConcludedEvent struct {
	ConsultationID string `json:"consultation_id"`
	OwnerID        string `json:"owner_id"`
	Severity       string `json:"severity_level"`
	ConcludedAt    string `json:"concluded_at"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

func (p *Publisher) Close() {
	p.conn.Close()
}

// TriageConcluded publishes one event for a concluded dialogue. Satisfies
// triage.Alerter.
func (p *Publisher) TriageConcluded(_ context.Context, rec triage.ConsultationRecord) error {
	payload, err := json.Marshal(ConcludedEvent{
		ConsultationID: rec.ID.String(),
		OwnerID:        rec.OwnerID.String(),
		Severity:       string(rec.Severity),
		ConcludedAt:    rec.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(SubjectTriageConcluded, payload); err != nil {
		return fmt.Errorf("publish %s: %w", SubjectTriageConcluded, err)
	}
	return nil
}
