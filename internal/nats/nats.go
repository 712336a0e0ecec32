package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"pokerstats/config"
	"pokerstats/internal/tournament"

	"github.com/nats-io/nats.go"
)

func Connect(cfg *config.Config) (*nats.Conn, nats.JetStreamContext, error) {
	address := fmt.Sprintf("nats://%s:%d", cfg.NATS.Host, cfg.NATS.Port)
	nc, err := nats.Connect(address, nats.Name("pokerstats"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return nc, js, nil
}

// ConfigureStream creates the tournament event stream, or updates it when it
// already exists.
func ConfigureStream(js nats.JetStreamContext, streamCfg *config.StreamConfig) error {
	cfg := &nats.StreamConfig{
		Name:     streamCfg.Name,
		Subjects: streamCfg.Subjects,
	}
	if _, err := js.StreamInfo(streamCfg.Name); err == nil {
		if _, err := js.UpdateStream(cfg); err != nil {
			return fmt.Errorf("failed to update stream: %w", err)
		}
		return nil
	}
	if _, err := js.AddStream(cfg); err != nil {
		return fmt.Errorf("failed to add stream: %w", err)
	}
	return nil
}

// Publisher is the part of nats.JetStreamContext the notifier needs.
type Publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// EventNotifier publishes tournament lifecycle events to JetStream on
// <prefix>.<tournament id>.<event type>. The event id doubles as the message
// id so redeliveries are de-duplicated by the stream.
type EventNotifier struct {
	js     Publisher
	prefix string
}

var _ tournament.Notifier = (*EventNotifier)(nil)

func NewEventNotifier(js Publisher, prefix string) *EventNotifier {
	return &EventNotifier{js: js, prefix: prefix}
}

func Subject(prefix string, event tournament.Event) string {
	return fmt.Sprintf("%s.%d.%s", prefix, event.TournamentID, event.Type)
}

func (n *EventNotifier) Notify(ctx context.Context, event tournament.Event) error {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event for tournament %d: %w", event.Type, event.TournamentID, err)
	}

	opts := []nats.PubOpt{nats.MsgId(event.ID)}
	if _, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Context(ctx))
	}
	if _, err := n.js.Publish(Subject(n.prefix, event), messageBytes, opts...); err != nil {
		return fmt.Errorf("failed to publish %s event for tournament %d: %w", event.Type, event.TournamentID, err)
	}
	return nil
}
