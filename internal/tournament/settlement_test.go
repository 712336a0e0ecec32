package tournament_test

import (
	"strconv"
	"testing"

	"pokerstats/internal/db/models"
	"pokerstats/internal/tournament"
	"pokerstats/internal/tournament/tournamenttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// row is a stored result with its money rendered to cents.
type row struct {
	PlayerID          uint
	User              string
	Placement         int
	PlacementEarnings string
	BountyEarnings    string
	GrossEarnings     string
	NetEarnings       string
	Investment        string
	Rebuys            int
	IsBackfill        bool
}

func results(t *testing.T, f *tournamenttest.Fixture, tournamentID uint) []row {
	t.Helper()
	players, err := f.Store.ListPlayers(tournamentID)
	require.NoError(t, err)
	names := map[uint]string{}
	for _, p := range players {
		names[p.ID] = p.User.Username
	}

	stored, err := f.Service.Results(f.Ctx, tournamentID)
	require.NoError(t, err)
	rows := make([]row, 0, len(stored))
	for _, r := range stored {
		rows = append(rows, row{
			PlayerID:          r.PlayerID,
			User:              names[r.PlayerID],
			Placement:         r.Placement,
			PlacementEarnings: r.PlacementEarnings.StringFixed(2),
			BountyEarnings:    r.BountyEarnings.StringFixed(2),
			GrossEarnings:     r.GrossEarnings.StringFixed(2),
			NetEarnings:       r.NetEarnings.StringFixed(2),
			Investment:        r.Investment.StringFixed(2),
			Rebuys:            r.Rebuys,
			IsBackfill:        r.IsBackfill,
		})
	}
	return rows
}

func byUser(rows []row) map[string]row {
	out := make(map[string]row, len(rows))
	for _, r := range rows {
		out[r.User] = r
	}
	return out
}

func numberedUsers(f *tournamenttest.Fixture, n int) []uint {
	ids := make([]uint, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, f.User(strconv.Itoa(i)))
	}
	return ids
}

func TestHeadsUpBounty(t *testing.T) {
	f := tournamenttest.New(t)
	cat, dog := f.User("cat"), f.User("dog")
	structure := f.Structure(cat, "100", "10", []int{100}, false)
	tour := f.Tournament(cat, structure, dog)
	f.Start(cat, tour.ID)
	f.Eliminate(cat, tour.ID, cat, dog)

	ok, err := f.Service.IsCompletable(f.Ctx, tour.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	f.Complete(cat, tour.ID)

	rows := byUser(results(t, f, tour.ID))
	winner := rows["cat"]
	assert.Equal(t, 0, winner.Placement)
	// The bounty is carved out of the pool: 100% of (100 - 10) x 2.
	assert.Equal(t, "180.00", winner.PlacementEarnings)
	assert.Equal(t, "10.00", winner.BountyEarnings)
	assert.Equal(t, "190.00", winner.GrossEarnings)
	assert.Equal(t, "90.00", winner.NetEarnings)
	assert.Equal(t, "100.00", winner.Investment)

	loser := rows["dog"]
	assert.Equal(t, 1, loser.Placement)
	assert.Equal(t, "0.00", loser.GrossEarnings)
	assert.Equal(t, "-100.00", loser.NetEarnings)

	value, err := f.Service.TournamentValue(f.Ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, "200.00", value.StringFixed(2))
}

func TestPlacementOrderNoRebuys(t *testing.T) {
	f := tournamenttest.New(t)
	ids := numberedUsers(f, 9)
	admin := ids[0]
	structure := f.Structure(admin, "115.12", "", []int{60, 30, 10}, false)
	tour := f.Tournament(admin, structure, ids[1:]...)
	f.Start(admin, tour.ID)

	survivor := f.User("6")
	for _, name := range []string{"7", "5", "3", "2", "1", "9", "8", "4"} {
		f.Eliminate(admin, tour.ID, survivor, f.User(name))
	}
	f.Complete(admin, tour.ID)

	rows := results(t, f, tour.ID)
	require.Len(t, rows, 9)
	wantOrder := []string{"6", "4", "8", "9", "1", "2", "3", "5", "7"}
	wantEarnings := []string{"621.65", "310.82", "103.61", "0.00", "0.00", "0.00", "0.00", "0.00", "0.00"}
	for i, r := range rows {
		assert.Equal(t, i, r.Placement)
		assert.Equal(t, wantOrder[i], r.User, "placement %d", i)
		assert.Equal(t, wantEarnings[i], r.PlacementEarnings, "placement %d", i)
		assert.Equal(t, "0.00", r.BountyEarnings)
	}

	placement, err := f.Service.DeterminePlacement(f.Ctx, tour.ID, f.User("4"))
	require.NoError(t, err)
	assert.Equal(t, 1, placement)

	preview, err := f.Service.SettlePlayer(f.Ctx, tour.ID, survivor)
	require.NoError(t, err)
	assert.Equal(t, 0, preview.Placement)
	assert.Equal(t, "621.65", preview.GrossEarnings.StringFixed(2))
	assert.Equal(t, "506.53", preview.NetEarnings.StringFixed(2))
}

// playRebuyLedger knocks out players in a fixed order, rebuying 1 twice and
// 5, 7 and 8 once. 9 survives.
func playRebuyLedger(f *tournamenttest.Fixture, admin, tournamentID uint) {
	eliminatees := []string{"1", "1", "5", "2", "3", "4", "6", "5", "7", "8", "1", "8", "7"}
	eliminators := []string{"2", "5", "9", "7", "8", "1", "1", "9", "8", "1", "9", "7", "9"}
	rebuys := map[string]int{"1": 2, "5": 1, "7": 1, "8": 1}
	for i, name := range eliminatees {
		f.Eliminate(admin, tournamentID, f.User(eliminators[i]), f.User(name))
		if rebuys[name] > 0 {
			rebuys[name]--
			f.Rebuy(admin, tournamentID, f.User(name))
		}
	}
}

func TestPlacementEarningsWithRebuys(t *testing.T) {
	tests := []struct {
		name     string
		bounty   string
		earnings []string
	}{
		{
			name:     "no bounty",
			earnings: []string{"805.84", "483.50", "241.75", "80.58"},
		},
		{
			name:     "bounty",
			bounty:   "25.69",
			earnings: []string{"626.01", "375.61", "187.80", "62.60"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tournamenttest.New(t)
			ids := numberedUsers(f, 9)
			admin := ids[0]
			structure := f.Structure(admin, "115.12", tt.bounty, []int{50, 30, 15, 5}, true)
			tour := f.Tournament(admin, structure, ids[1:]...)
			f.Start(admin, tour.ID)
			playRebuyLedger(f, admin, tour.ID)
			f.Complete(admin, tour.ID)

			rows := results(t, f, tour.ID)
			require.Len(t, rows, 9)
			wantOrder := []string{"9", "7", "8", "1", "5", "6", "4", "3", "2"}
			for i, r := range rows {
				assert.Equal(t, wantOrder[i], r.User, "placement %d", i)
				if i < len(tt.earnings) {
					assert.Equal(t, tt.earnings[i], r.PlacementEarnings, "placement %d", i)
				} else {
					assert.Equal(t, "0.00", r.PlacementEarnings, "placement %d", i)
				}
			}

			value, err := f.Service.TournamentValue(f.Ctx, tour.ID)
			require.NoError(t, err)
			assert.Equal(t, "1611.68", value.StringFixed(2))

			people := byUser(rows)
			assert.Equal(t, 2, people["1"].Rebuys)
			assert.Equal(t, "345.36", people["1"].Investment)
			if tt.bounty == "" {
				assert.Equal(t, "0.00", people["9"].BountyEarnings)
				return
			}
			assert.Equal(t, "102.76", people["9"].BountyEarnings)
			assert.Equal(t, "728.77", people["9"].GrossEarnings)
			assert.Equal(t, "613.65", people["9"].NetEarnings)
			assert.Equal(t, "77.07", people["1"].BountyEarnings)
			assert.Equal(t, "139.67", people["1"].GrossEarnings)
			assert.Equal(t, "-205.69", people["1"].NetEarnings)
		})
	}
}

func TestSplitEliminationCredit(t *testing.T) {
	f := tournamenttest.New(t)
	cat, dog, fox := f.User("cat"), f.User("dog"), f.User("fox")
	structure := f.Structure(cat, "100", "10", []int{100}, false)
	tour := f.Tournament(cat, structure, dog, fox)
	f.Start(cat, tour.ID)

	_, err := f.Service.SplitEliminate(f.Ctx, cat, tour.ID, []uint{cat, fox}, dog)
	require.NoError(t, err)
	f.Eliminate(cat, tour.ID, cat, fox)
	f.Complete(cat, tour.ID)

	rows := byUser(results(t, f, tour.ID))
	assert.Equal(t, 0, rows["cat"].Placement)
	assert.Equal(t, "15.00", rows["cat"].BountyEarnings, "One elimination plus half of the split")
	assert.Equal(t, "270.00", rows["cat"].PlacementEarnings)
	assert.Equal(t, "285.00", rows["cat"].GrossEarnings)

	assert.Equal(t, 1, rows["fox"].Placement)
	assert.Equal(t, "5.00", rows["fox"].BountyEarnings, "Half of the split")
	assert.Equal(t, "-95.00", rows["fox"].NetEarnings)

	// dog was only ever split-eliminated and cannot be ranked.
	assert.Equal(t, models.DidNotPlace, rows["dog"].Placement)
	assert.Equal(t, "0.00", rows["dog"].GrossEarnings)
	assert.Equal(t, "-100.00", rows["dog"].NetEarnings)
}

func TestResultsAreReproducible(t *testing.T) {
	f := tournamenttest.New(t)
	ids := numberedUsers(f, 9)
	admin := ids[0]
	structure := f.Structure(admin, "115.12", "25.69", []int{50, 30, 15, 5}, true)
	tour := f.Tournament(admin, structure, ids[1:]...)
	f.Start(admin, tour.ID)
	playRebuyLedger(f, admin, tour.ID)
	f.Complete(admin, tour.ID)
	first := results(t, f, tour.ID)

	rebuilt, err := f.Service.BuildResults(f.Ctx, admin, tour.ID)
	require.NoError(t, err)
	assert.Len(t, rebuilt, 9)
	assert.Equal(t, first, results(t, f, tour.ID))

	_, err = f.Service.UndoComplete(f.Ctx, admin, tour.ID)
	require.NoError(t, err)
	playRebuyLedger(f, admin, tour.ID)
	f.Complete(admin, tour.ID)
	assert.Equal(t, first, results(t, f, tour.ID))
}

func TestSettlementRequiresCompletion(t *testing.T) {
	f := tournamenttest.New(t)
	cat, dog := f.User("cat"), f.User("dog")
	structure := f.Structure(cat, "20", "", []int{100}, false)
	tour := f.Tournament(cat, structure, dog)
	f.Start(cat, tour.ID)

	_, err := f.Service.DeterminePlacement(f.Ctx, tour.ID, dog)
	assert.ErrorIs(t, err, tournament.ErrInvalidState)
	assert.EqualError(t, err, "Cannot determine placement until tourment is completed.")

	_, err = f.Service.TournamentValue(f.Ctx, tour.ID)
	assert.ErrorIs(t, err, tournament.ErrInvalidState)

	_, err = f.Service.SettlePlayer(f.Ctx, tour.ID, dog)
	assert.ErrorIs(t, err, tournament.ErrInvalidState)

	_, err = f.Service.BuildResults(f.Ctx, cat, tour.ID)
	assert.ErrorIs(t, err, tournament.ErrInvalidState)
	assert.EqualError(t, err, "You cannot build Tournament results until the Tournament is complete.")
}

func TestPlacementEarnings(t *testing.T) {
	structure := &models.TournamentStructure{
		BuyIn:             tournamenttest.Money("10"),
		PayoutPercentages: []int{70, 30},
	}
	assert.Equal(t, "70.00", tournament.PlacementEarnings(structure, 10, 0).StringFixed(2))
	assert.Equal(t, "30.00", tournament.PlacementEarnings(structure, 10, 1).StringFixed(2))
	assert.True(t, tournament.PlacementEarnings(structure, 10, 2).IsZero())
	assert.True(t, tournament.PlacementEarnings(structure, 10, models.DidNotPlace).IsZero())
	assert.Equal(t, "100.00", tournament.PrizePool(structure, 10).StringFixed(2))
}
