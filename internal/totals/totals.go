// Package totals keeps the per-user cumulative snapshots of tournament
// results. Snapshots are derived data: they are keyed by a hash of the
// completed tournaments they cover and rebuilt whenever that hash changes.
package totals

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"pokerstats/internal/db"
	"pokerstats/internal/db/models"

	"github.com/shopspring/decimal"
)

type Cache struct {
	repo db.Repository
}

func NewCache(repo db.Repository) *Cache {
	return &Cache{repo: repo}
}

// BuildHash fingerprints a set of completed tournaments by id and completion
// time, in the order given.
func BuildHash(tournaments []models.Tournament) string {
	var b strings.Builder
	for _, t := range tournaments {
		completed := ""
		if t.CompletedAt != nil {
			completed = t.CompletedAt.UTC().Format(time.RFC3339Nano)
		}
		fmt.Fprintf(&b, "%d+%s", t.ID, completed)
	}
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// NeedsRebuild compares the newest snapshot's hash with the user's current
// set of completed tournaments.
func (c *Cache) NeedsRebuild(ctx context.Context, userID uint) (bool, error) {
	var stale bool
	err := c.repo.Transaction(ctx, func(tx db.Repository) error {
		var err error
		stale, _, err = needsRebuild(tx, userID)
		return err
	})
	return stale, err
}

func needsRebuild(tx db.Repository, userID uint) (bool, []models.Tournament, error) {
	tournaments, err := tx.ListCompletedTournamentsForUser(userID)
	if err != nil {
		return false, nil, err
	}
	snapshots, err := tx.ListTotals(userID)
	if err != nil {
		return false, nil, err
	}
	if len(tournaments) == 0 {
		// Snapshots left over from tournaments that were un-completed.
		return len(snapshots) > 0, tournaments, nil
	}
	if len(snapshots) == 0 {
		return true, tournaments, nil
	}
	return snapshots[len(snapshots)-1].TournamentHash != BuildHash(tournaments), tournaments, nil
}

// Rebuild discards the user's snapshots and writes one cumulative snapshot per
// completed tournament, oldest first.
func (c *Cache) Rebuild(ctx context.Context, userID uint) ([]models.TournamentTotals, error) {
	var snapshots []models.TournamentTotals
	err := c.repo.Transaction(ctx, func(tx db.Repository) error {
		tournaments, err := tx.ListCompletedTournamentsForUser(userID)
		if err != nil {
			return err
		}
		snapshots, err = rebuild(tx, userID, tournaments)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// GetOrBuild returns the stored snapshots, rebuilding them first when they
// are stale.
func (c *Cache) GetOrBuild(ctx context.Context, userID uint) ([]models.TournamentTotals, error) {
	var snapshots []models.TournamentTotals
	err := c.repo.Transaction(ctx, func(tx db.Repository) error {
		stale, tournaments, err := needsRebuild(tx, userID)
		if err != nil {
			return err
		}
		if !stale {
			snapshots, err = tx.ListTotals(userID)
			return err
		}
		snapshots, err = rebuild(tx, userID, tournaments)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func rebuild(tx db.Repository, userID uint, tournaments []models.Tournament) ([]models.TournamentTotals, error) {
	if err := tx.DeleteTotals(userID); err != nil {
		return nil, err
	}

	running := models.TournamentTotals{
		UserID:        userID,
		Eliminations:  decimal.Zero,
		GrossEarnings: decimal.Zero,
		NetEarnings:   decimal.Zero,
		Losses:        decimal.Zero,
	}
	snapshots := make([]models.TournamentTotals, 0, len(tournaments))
	for i := range tournaments {
		t := &tournaments[i]
		outcome, err := userLine(tx, t, userID)
		if err != nil {
			return nil, err
		}

		running.TournamentsPlayed++
		running.GrossEarnings = running.GrossEarnings.Add(outcome.result.GrossEarnings.RoundBank(2))
		running.NetEarnings = running.NetEarnings.Add(outcome.result.NetEarnings.RoundBank(2))
		running.Losses = running.Losses.Add(outcome.result.Investment.RoundBank(2))
		running.Eliminations = running.Eliminations.Add(outcome.eliminationCredit(true))
		running.Rebuys += outcome.rebuys

		snapshot := running
		snapshot.ID = 0
		snapshot.TournamentHash = BuildHash(tournaments[:i+1])
		snapshot.Timestamp = *t.CompletedAt
		if err := tx.CreateTotals(&snapshot); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// line is one user's outcome in one completed tournament.
type line struct {
	player       models.TournamentPlayer
	result       models.TournamentPlayerResult
	eliminations []models.TournamentElimination
	splitShares  []int
	splits       []models.TournamentSplitElimination
	rebuys       int
}

// eliminationCredit is ordinary eliminations plus 1/N per split elimination.
// With roundShares each share is rounded to 2 places before it is added.
func (l *line) eliminationCredit(roundShares bool) decimal.Decimal {
	credit := decimal.NewFromInt(int64(len(l.eliminations)))
	for _, n := range l.splitShares {
		share := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(n)))
		if roundShares {
			share = share.RoundBank(2)
		}
		credit = credit.Add(share)
	}
	return credit
}

func userLine(tx db.Repository, t *models.Tournament, userID uint) (*line, error) {
	players, err := tx.FindPlayers(t.ID, userID)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("user %d is not a player of tournament %d", userID, t.ID)
	}
	l := &line{player: players[0]}

	results, err := tx.ListResults(t.ID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, r := range results {
		if r.PlayerID == l.player.ID {
			l.result, found = r, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("tournament %d has no result for player %d", t.ID, l.player.ID)
	}

	eliminations, err := tx.ListEliminations(t.ID)
	if err != nil {
		return nil, err
	}
	for _, e := range eliminations {
		if e.EliminatorID == l.player.ID {
			l.eliminations = append(l.eliminations, e)
		}
	}

	splits, err := tx.ListSplitEliminations(t.ID)
	if err != nil {
		return nil, err
	}
	for _, split := range splits {
		for _, id := range split.EliminatorIDs() {
			if id == l.player.ID {
				l.splits = append(l.splits, split)
				l.splitShares = append(l.splitShares, len(split.Eliminators))
				break
			}
		}
	}

	rebuys, err := tx.ListRebuys(t.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range rebuys {
		if r.PlayerID == l.player.ID {
			l.rebuys++
		}
	}
	return l, nil
}
