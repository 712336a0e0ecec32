package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pokerstats/config"
	"pokerstats/internal/tournament"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
	opts    int
}

type fakeJetStream struct {
	messages []published
	err      error
}

func (f *fakeJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.messages = append(f.messages, published{subject: subj, data: data, opts: len(opts)})
	return &nats.PubAck{Stream: "POKERSTATS_TOURNAMENTS", Sequence: uint64(len(f.messages))}, nil
}

func TestEventNotifierPublishesJSON(t *testing.T) {
	js := &fakeJetStream{}
	notifier := NewEventNotifier(js, "pokerstats.tournament")

	event := tournament.Event{
		ID:           "5f0c7a52-7d1c-4b4e-9a53-0d8c4c1c2f11",
		Type:         tournament.EventCompleted,
		TournamentID: 42,
		ActorID:      7,
		OccurredAt:   time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC),
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, notifier.Notify(ctx, event))
	require.Len(t, js.messages, 1)

	msg := js.messages[0]
	assert.Equal(t, "pokerstats.tournament.42.completed", msg.subject)
	assert.Equal(t, 2, msg.opts, "message id and context options should be set")
	assert.Equal(t, "pokerstats.tournament.42.completed", Subject("pokerstats.tournament", event))

	var decoded tournament.Event
	require.NoError(t, json.Unmarshal(msg.data, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, event.Type, decoded.Type)
	assert.Equal(t, event.TournamentID, decoded.TournamentID)
	assert.Equal(t, event.ActorID, decoded.ActorID)
	assert.True(t, event.OccurredAt.Equal(decoded.OccurredAt))
}

func TestEventNotifierWrapsPublishError(t *testing.T) {
	js := &fakeJetStream{err: errors.New("no responders")}
	notifier := NewEventNotifier(js, "pokerstats.tournament")

	err := notifier.Notify(context.Background(), tournament.Event{Type: tournament.EventStarted, TournamentID: 3})
	assert.Empty(t, js.messages)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish started event for tournament 3")
	assert.ErrorIs(t, err, js.err)
}

func TestConnectAndCreateStream(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	nc, js, err := Connect(cfg)
	if err != nil {
		t.Skipf("NATS is not reachable: %v", err)
	}
	defer nc.Close()

	assert.NotNil(t, nc, "NATS connection should not be nil")
	assert.NotNil(t, js, "NATS JS connection should not be nil")

	err = ConfigureStream(js, &cfg.NATS.Stream)
	if err != nil {
		t.Skipf("JetStream is not enabled: %v", err)
	}

	streamInfo, err := js.StreamInfo(cfg.NATS.Stream.Name)
	require.NoError(t, err)

	assert.Equal(t, cfg.NATS.Stream.Name, streamInfo.Config.Name, "Stream name should match")
	assert.ElementsMatch(t, cfg.NATS.Stream.Subjects, streamInfo.Config.Subjects, "Stream subjects should match")
}
