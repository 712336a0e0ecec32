package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.NotNil(t, cfg, "Config should not be nil")
	assert.Equal(t, "pokerstats", cfg.Database.DBName)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "POKERSTATS_TOURNAMENTS", cfg.NATS.Stream.Name)
	assert.Equal(t, []string{"pokerstats.tournament.>"}, cfg.NATS.Stream.Subjects)
	assert.Equal(t, "pokerstats-totals", cfg.Temporal.TaskQueue)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("POKERSTATS_DATABASE_HOST", "db.internal")
	t.Setenv("POKERSTATS_DATABASE_PORT", "6543")
	t.Setenv("POKERSTATS_SERVER_PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestJetStreamFromContext(t *testing.T) {
	_, ok := JetStreamFromContext(context.Background())
	assert.False(t, ok)

	_, ok = JetStreamFromContext(WithJetStream(context.Background(), nil))
	assert.False(t, ok, "a nil JetStream context is not usable")
}
