package db

import (
	"context"
	"errors"
	"testing"

	"pokerstats/config"
	"pokerstats/internal/db/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// connect returns a migrated connection, or skips when no database is running.
func connect(t *testing.T) *gorm.DB {
	t.Helper()
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	cfg.Database.LogLevel = "silent"

	conn, err := InitDB(&cfg.Database)
	if err != nil {
		t.Skipf("Postgres is not reachable: %v", err)
	}
	require.NoError(t, Migrate(conn), "Database migration should not return an error")
	return conn
}

func TestInitDB(t *testing.T) {
	conn := connect(t)
	assert.NotNil(t, GetDB(), "DB should not be nil")

	sqlDB, err := conn.DB()
	assert.NoError(t, err)
	assert.NoError(t, sqlDB.Ping(), "Should be able to ping the database")
}

func TestRepositoryTransactionRollsBack(t *testing.T) {
	repo := NewRepository(connect(t))
	ctx := context.Background()

	admin := &models.User{Username: "admin-" + uuid.NewString()}
	require.NoError(t, repo.CreateUser(admin))
	structure := &models.TournamentStructure{
		Title:             "Weekly",
		UserID:            admin.ID,
		BuyIn:             decimal.RequireFromString("20.00"),
		PayoutPercentages: datatypes.JSONSlice[int]{70, 30},
	}
	require.NoError(t, repo.CreateStructure(structure))
	tournament := &models.Tournament{Title: "Weekly #1", AdminID: admin.ID, StructureID: structure.ID}
	require.NoError(t, repo.CreateTournament(tournament))

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(tx Repository) error {
		locked, err := tx.LockTournament(tournament.ID)
		require.NoError(t, err)
		require.NotNil(t, locked)
		assert.Equal(t, []int{70, 30}, []int(locked.Structure.PayoutPercentages))

		if err := tx.CreatePlayer(&models.TournamentPlayer{TournamentID: tournament.ID, UserID: admin.ID}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	players, err := repo.ListPlayers(tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, players, "Rolled back writes should not be visible")

	missing, err := repo.GetTournament(tournament.ID + 1000000)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
