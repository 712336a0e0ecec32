package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pokerstats/internal/db"
	"pokerstats/internal/db/dbtest"
	"pokerstats/internal/db/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTournament(t *testing.T, repo db.Repository, admin uint) *models.Tournament {
	t.Helper()
	structure := &models.TournamentStructure{
		Title:             "Deep stack",
		UserID:            admin,
		BuyIn:             decimal.RequireFromString("115.12"),
		BountyAmount:      decimal.NewNullDecimal(decimal.RequireFromString("25.69")),
		PayoutPercentages: datatypes.JSONSlice[int]{50, 30, 15, 5},
		AllowRebuys:       true,
	}
	require.NoError(t, repo.CreateStructure(structure))
	tour := &models.Tournament{Title: "Friday Night", AdminID: admin, StructureID: structure.ID}
	require.NoError(t, repo.CreateTournament(tour))
	return tour
}

func TestTransactionRollsBackOnError(t *testing.T) {
	repo := dbtest.Repository(t)
	user := &models.User{Username: "cat"}
	require.NoError(t, repo.CreateUser(user))

	boom := errors.New("boom")
	err := repo.Transaction(context.Background(), func(tx db.Repository) error {
		require.NoError(t, tx.CreateUser(&models.User{Username: "dog"}))
		require.NoError(t, tx.CreatePlayer(&models.TournamentPlayer{TournamentID: 1, UserID: user.ID}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	players, err := repo.ListPlayers(1)
	require.NoError(t, err)
	assert.Empty(t, players)
	assert.NoError(t, repo.CreateUser(&models.User{Username: "dog"}), "dog should not exist after rollback")
}

func TestTransactionCommits(t *testing.T) {
	repo := dbtest.Repository(t)
	var id uint
	err := repo.Transaction(context.Background(), func(tx db.Repository) error {
		u := &models.User{Username: "cat"}
		err := tx.CreateUser(u)
		id = u.ID
		return err
	})
	require.NoError(t, err)

	u, err := repo.GetUser(id)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "cat", u.Username)

	missing, err := repo.GetUser(id + 100)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDuplicateKeys(t *testing.T) {
	repo := dbtest.Repository(t)
	require.NoError(t, repo.CreateUser(&models.User{Username: "cat"}))
	assert.ErrorIs(t, repo.CreateUser(&models.User{Username: "cat"}), gorm.ErrDuplicatedKey)

	require.NoError(t, repo.CreateResult(&models.TournamentPlayerResult{TournamentID: 1, PlayerID: 7}))
	assert.ErrorIs(t, repo.CreateResult(&models.TournamentPlayerResult{TournamentID: 1, PlayerID: 7}), gorm.ErrDuplicatedKey)
}

func TestStructureRoundTrip(t *testing.T) {
	repo := dbtest.Repository(t)
	admin := &models.User{Username: "cat"}
	require.NoError(t, repo.CreateUser(admin))
	tour := newTournament(t, repo, admin.ID)

	locked, err := repo.LockTournament(tour.ID)
	require.NoError(t, err)
	require.NotNil(t, locked)
	assert.Equal(t, []int{50, 30, 15, 5}, []int(locked.Structure.PayoutPercentages))
	assert.Equal(t, "115.12", locked.Structure.BuyIn.StringFixed(2))
	assert.True(t, locked.Structure.HasBounty())
	assert.Equal(t, "25.69", locked.Structure.BountyAmount.Decimal.StringFixed(2))
	assert.Equal(t, models.StateInactive, locked.State())
}

func TestSplitEliminationsCarryEliminators(t *testing.T) {
	repo := dbtest.Repository(t)
	split := &models.TournamentSplitElimination{
		TournamentID: 3,
		EliminateeID: 10,
		Eliminators: []models.TournamentSplitEliminator{
			{PlayerID: 11},
			{PlayerID: 12},
		},
		EliminatedAt: time.Date(2024, time.March, 1, 20, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.CreateSplitElimination(split))
	other := &models.TournamentSplitElimination{
		TournamentID: 4,
		EliminateeID: 20,
		Eliminators:  []models.TournamentSplitEliminator{{PlayerID: 21}, {PlayerID: 22}},
		EliminatedAt: time.Date(2024, time.March, 1, 20, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.CreateSplitElimination(other))

	splits, err := repo.ListSplitEliminations(3)
	require.NoError(t, err)
	require.Len(t, splits, 1)
	assert.Equal(t, []uint{11, 12}, splits[0].EliminatorIDs())
	assert.True(t, split.EliminatedAt.Equal(splits[0].EliminatedAt))

	require.NoError(t, repo.DeleteSplitEliminations(3))
	splits, err = repo.ListSplitEliminations(3)
	require.NoError(t, err)
	assert.Empty(t, splits)

	kept, err := repo.ListSplitEliminations(4)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, []uint{21, 22}, kept[0].EliminatorIDs(), "Another tournament's eliminators should survive the delete")
}

func TestListCompletedTournamentsForUser(t *testing.T) {
	repo := dbtest.Repository(t)
	cat := &models.User{Username: "cat"}
	dog := &models.User{Username: "dog"}
	require.NoError(t, repo.CreateUser(cat))
	require.NoError(t, repo.CreateUser(dog))

	base := time.Date(2024, time.March, 1, 19, 0, 0, 0, time.UTC)
	var ids []uint
	for i, completedAt := range []*time.Time{ptr(base.Add(2 * time.Hour)), ptr(base.Add(time.Hour)), nil} {
		tour := newTournament(t, repo, cat.ID)
		require.NoError(t, repo.CreatePlayer(&models.TournamentPlayer{TournamentID: tour.ID, UserID: cat.ID}))
		if i == 0 {
			require.NoError(t, repo.CreatePlayer(&models.TournamentPlayer{TournamentID: tour.ID, UserID: dog.ID}))
		}
		tour.StartedAt = ptr(base)
		tour.CompletedAt = completedAt
		require.NoError(t, repo.UpdateTournamentState(tour))
		ids = append(ids, tour.ID)
	}

	completed, err := repo.ListCompletedTournamentsForUser(cat.ID)
	require.NoError(t, err)
	require.Len(t, completed, 2)
	assert.Equal(t, ids[1], completed[0].ID, "Oldest completion comes first")
	assert.Equal(t, ids[0], completed[1].ID)
	assert.Equal(t, base.Add(time.Hour), completed[0].CompletedAt.UTC())
	assert.Equal(t, []int{50, 30, 15, 5}, []int(completed[0].Structure.PayoutPercentages))

	completed, err = repo.ListCompletedTournamentsForUser(dog.ID)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, ids[0], completed[0].ID)
}

func TestCanceledContext(t *testing.T) {
	repo := dbtest.Repository(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := repo.Transaction(ctx, func(db.Repository) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func ptr[T any](v T) *T {
	return &v
}
