package tournament

import (
	"context"
	"sort"

	"pokerstats/internal/db"
	"pokerstats/internal/db/models"
)

type SplitEliminationInput struct {
	EliminatorIDs []uint `json:"eliminator_ids"`
	EliminateeID  uint   `json:"eliminatee_id"`
}

type PlacementInput struct {
	UserID    uint `json:"user_id"`
	Placement int  `json:"placement"`
}

// BackfillInput describes a tournament played off the system. All ids are
// user ids.
type BackfillInput struct {
	// Eliminations maps each eliminator to the players they knocked out.
	Eliminations      map[uint][]uint         `json:"eliminations"`
	SplitEliminations []SplitEliminationInput `json:"split_eliminations"`
	// Placements holds one entry per payout slot. Everyone else did not place.
	Placements []PlacementInput `json:"placements"`
}

// backfillPlan is the validated input expressed in player ids.
type backfillPlan struct {
	placements map[uint]int
	winner     uint
	rebuys     map[uint]int
}

// Backfill starts, fills and completes an INACTIVE tournament in a single
// transaction. Nothing is kept if any step fails.
func (s *Service) Backfill(ctx context.Context, actorID, tournamentID uint, in BackfillInput) ([]models.TournamentPlayerResult, error) {
	var results []models.TournamentPlayerResult
	err := s.transaction(ctx, func(tx db.Repository) error {
		t, err := loadTournament(tx, tournamentID, true)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, actorID); err != nil {
			return err
		}
		if t.State() != models.StateInactive {
			return invalidState("You can only backfill a Tournament that has not been started.")
		}
		if err := dropPendingInvites(tx, t.ID); err != nil {
			return err
		}
		l, err := loadLedger(tx, t)
		if err != nil {
			return err
		}

		plan, err := planBackfill(tx, l, in)
		if err != nil {
			return err
		}
		if err := s.executeBackfill(tx, l, actorID, in, plan); err != nil {
			return err
		}
		results, err = tx.ListResults(t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, EventBackfilled, tournamentID, actorID)
	return results, nil
}

func planBackfill(tx db.Repository, l *ledger, in BackfillInput) (*backfillPlan, error) {
	timesOut := map[uint]int{}

	for _, split := range in.SplitEliminations {
		_, eliminatee, err := l.splitGroup(tx, split.EliminatorIDs, split.EliminateeID)
		if err != nil {
			return nil, err
		}
		timesOut[eliminatee.ID]++
	}

	slots := len(l.tournament.Structure.PayoutPercentages)
	if len(in.Placements) != slots {
		return nil, validation("The tournament structure requires you select %d players who placed in the tournament.", slots)
	}

	plan := &backfillPlan{placements: map[uint]int{}, rebuys: map[uint]int{}}
	taken := map[int]bool{}
	for _, pl := range in.Placements {
		p, err := l.participant(tx, pl.UserID)
		if err != nil {
			return nil, err
		}
		if _, dup := plan.placements[p.ID]; dup {
			return nil, validation("%s was assigned more than one placement.", p.User.Username)
		}
		if pl.Placement < 0 || pl.Placement >= slots {
			return nil, validation("Placement %d is not a paying position.", pl.Placement)
		}
		if taken[pl.Placement] {
			return nil, validation("Placement %d was assigned to more than one player.", pl.Placement)
		}
		taken[pl.Placement] = true
		plan.placements[p.ID] = pl.Placement
		if pl.Placement == 0 {
			plan.winner = p.ID
		}
	}
	if plan.winner == 0 {
		return nil, validation("You must select the winner of the tournament.")
	}

	for _, eliminator := range sortedKeys(in.Eliminations) {
		for _, eliminateeID := range in.Eliminations[eliminator] {
			p, err := l.participant(tx, eliminateeID)
			if err != nil {
				return nil, err
			}
			timesOut[p.ID]++
		}
	}
	for _, p := range l.players {
		if p.ID != plan.winner && timesOut[p.ID] == 0 {
			return nil, validation("%s did not win, must have been eliminated.", p.User.Username)
		}
	}

	// Every elimination after a player's first needs a rebuy to have happened.
	// The winner was never finally knocked out, so each of theirs does.
	total := 0
	for id, n := range timesOut {
		rebuys := n - 1
		if id == plan.winner {
			rebuys = n
		}
		if rebuys > 0 {
			plan.rebuys[id] = rebuys
			total += rebuys
		}
	}
	if total > 0 && !l.tournament.Structure.AllowRebuys {
		return nil, validation("This tournament does not allow rebuys. Update the Tournament Structure.")
	}
	return plan, nil
}

func (s *Service) executeBackfill(tx db.Repository, l *ledger, actorID uint, in BackfillInput, plan *backfillPlan) error {
	now := s.timestamp()
	l.tournament.StartedAt = &now
	if err := tx.UpdateTournamentState(l.tournament); err != nil {
		return err
	}

	for _, p := range l.players {
		for i := 0; i < plan.rebuys[p.ID]; i++ {
			if _, err := s.recordRebuy(tx, l, p.ID, true); err != nil {
				return err
			}
		}
	}
	for _, eliminator := range sortedKeys(in.Eliminations) {
		for _, eliminatee := range in.Eliminations[eliminator] {
			if _, err := s.eliminate(tx, l, eliminator, eliminatee, true); err != nil {
				return err
			}
		}
	}
	for _, split := range in.SplitEliminations {
		if _, err := s.splitEliminate(tx, l, split.EliminatorIDs, split.EliminateeID, true); err != nil {
			return err
		}
	}
	return s.complete(tx, l, actorID, plan.placements, true)
}

func sortedKeys(m map[uint][]uint) []uint {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
