package totals

import (
	"testing"

	"pokerstats/internal/tournament/tournamenttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerHistory(t *testing.T) {
	f := tournamenttest.New(t)
	cat, dog := f.User("cat"), f.User("dog")
	structure := f.Structure(cat, "20", "", []int{100}, false)
	first := f.HeadsUp(cat, dog, structure)
	second := f.HeadsUp(cat, dog, structure)
	cache := NewCache(f.Store)

	history, err := cache.PlayerHistory(f.Ctx, dog)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].TournamentID)
	assert.Equal(t, second.ID, history[1].TournamentID)
	assert.True(t, history[0].CompletedAt.Before(history[1].CompletedAt))
	assert.Equal(t, 1, history[0].Placement)
	assert.Equal(t, "-20.00", history[0].NetEarnings.StringFixed(2))
	assert.Equal(t, "20.00", history[0].Losses.StringFixed(2))

	empty, err := cache.PlayerHistory(f.Ctx, f.User("owl"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPlayerHistoryUsesExactSplitCredit(t *testing.T) {
	f := tournamenttest.New(t)
	playSplits(t, f)
	cache := NewCache(f.Store)

	history, err := cache.PlayerHistory(f.Ctx, f.User("dog"))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "0.67", history[0].Eliminations.StringFixed(2))
}

func TestEliminationsByOpponent(t *testing.T) {
	f := tournamenttest.New(t)
	playSplits(t, f)
	cache := NewCache(f.Store)

	counts, err := cache.EliminationsByOpponent(f.Ctx, f.User("cat"))
	require.NoError(t, err)

	got := map[string]string{}
	for _, c := range counts {
		got[c.Username] = c.Count.StringFixed(2)
	}
	assert.Equal(t, map[string]string{
		"bee": "1.00",
		"dog": "1.00",
		"fox": "1.00",
		"ant": "0.33",
		"owl": "0.33",
	}, got)

	// Highest count first, then by name.
	require.Len(t, counts, 5)
	assert.Equal(t, "bee", counts[0].Username)
	assert.Equal(t, "ant", counts[3].Username)
}
