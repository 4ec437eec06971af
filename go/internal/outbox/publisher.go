// Package outbox relays persisted decision events to NATS JetStream.
// Events are durably enqueued when a proposal is decided and picked up
// here, so a crash between decide and publish loses nothing.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/hardwood-league/commish/go/internal/storage"
)

const (
	natsMaxReconnects = 10
	natsReconnectWait = 2 * time.Second
)

// Publisher delivers one outbox event to the message bus.
type Publisher interface {
	Publish(ctx context.Context, event storage.OutboxEvent) error
}

// SetupNATS creates a NATS connection with a JetStream context.
func SetupNATS(natsURL string) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return nc, js, nil
}

// NATSPublisher publishes decision events to JetStream subjects of the
// form <prefix>.<event_type>, e.g. league.proposals.trade.approved.
type NATSPublisher struct {
	js            jetstream.JetStream
	subjectPrefix string
}

// NewNATSPublisher creates a JetStream publisher.
func NewNATSPublisher(js jetstream.JetStream, subjectPrefix string) *NATSPublisher {
	if subjectPrefix == "" {
		subjectPrefix = "league.proposals"
	}
	return &NATSPublisher{js: js, subjectPrefix: subjectPrefix}
}

var _ Publisher = (*NATSPublisher)(nil)

type eventEnvelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	ProposalID uint64          `json:"proposal_id,string"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

// Publish sends the event. The proposal id is the message key so all
// events for one proposal land on the same subject token.
func (p *NATSPublisher) Publish(ctx context.Context, event storage.OutboxEvent) error {
	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, event.EventType)

	envelope := eventEnvelope{
		EventID:    event.ID.String(),
		EventType:  event.EventType,
		ProposalID: event.ProposalID,
		Timestamp:  event.CreatedAt,
		Payload:    json.RawMessage(event.Payload),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID.String())); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", event.ID.String()).
		Msg("published decision event")
	return nil
}

// LogPublisher logs events instead of publishing them. Used in
// development and tests when no bus is available.
type LogPublisher struct{}

var _ Publisher = (*LogPublisher)(nil)

func (LogPublisher) Publish(_ context.Context, event storage.OutboxEvent) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Uint64("proposal_id", event.ProposalID).
		Msg("publishing decision event")
	return nil
}
