package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"marksboard/backend/internal/shared"
)

// MarkSubmitted is published after a submission is stored.
type MarkSubmitted struct {
	RollNumber  string    `json:"rollNumber"`
	Subject     string    `json:"subject"`
	TAName      string    `json:"taName"`
	Marks       float64   `json:"marks"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// NATSPublisher publishes submission events on a single subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
	now     func() time.Time
}

func NewNATSPublisher(url, subject string, logger zerolog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("marksboard"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	logger.Info().Str("url", url).Str("subject", subject).Msg("NATS publisher initialized")

	return &NATSPublisher{
		conn:    nc,
		subject: subject,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (p *NATSPublisher) PublishMarkSubmitted(ctx context.Context, rec shared.MarkRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(MarkSubmitted{
		RollNumber:  rec.RollNumber,
		Subject:     rec.Subject,
		TAName:      rec.TAName,
		Marks:       rec.Marks,
		SubmittedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}

	p.logger.Debug().Str("subject", p.subject).Str("roll_number", rec.RollNumber).Msg("mark event published")
	return nil
}

// Close drains pending messages before closing the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// NopPublisher is used when no NATS URL is configured.
type NopPublisher struct{}

func (NopPublisher) PublishMarkSubmitted(context.Context, shared.MarkRecord) error { return nil }

func (NopPublisher) Close() error { return nil }
