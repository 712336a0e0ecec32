package tournament

import (
	"context"
	"log"
	"sort"
	"time"

	"pokerstats/internal/db"
	"pokerstats/internal/db/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// isCompletable holds when exactly one entry is left in play.
func (l *ledger) isCompletable() bool {
	return l.buyIns()+l.totalRebuys()-l.eliminationCount() == 1
}

// placements ranks every player of a finished tournament. The survivor is 0;
// everyone else is ordered by their most recent ordinary elimination, latest
// first. Players with no ordinary elimination cannot be ranked and get
// models.DidNotPlace.
func (l *ledger) placements() map[uint]int {
	placements := make(map[uint]int, len(l.players))

	type lastOut struct {
		at time.Time
		id uint
	}
	latest := map[uint]lastOut{}
	for _, p := range l.players {
		if !l.isEliminated(p.ID) {
			placements[p.ID] = 0
		}
	}
	for _, e := range l.eliminations {
		if _, won := placements[e.EliminateeID]; won {
			continue
		}
		cur, ok := latest[e.EliminateeID]
		if !ok || e.EliminatedAt.After(cur.at) || (e.EliminatedAt.Equal(cur.at) && e.ID > cur.id) {
			latest[e.EliminateeID] = lastOut{at: e.EliminatedAt, id: e.ID}
		}
	}

	order := make([]uint, 0, len(latest))
	for id := range latest {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := latest[order[i]], latest[order[j]]
		if !a.at.Equal(b.at) {
			return a.at.After(b.at)
		}
		return a.id > b.id
	})
	for i, id := range order {
		placements[id] = i + 1
	}

	for _, p := range l.players {
		if _, ok := placements[p.ID]; !ok {
			log.Printf("Player %d in tournament %d was only split-eliminated and cannot be placed", p.ID, l.tournament.ID)
			placements[p.ID] = models.DidNotPlace
		}
	}
	return placements
}

// PrizePool is the money paid out by placement: every buy-in and rebuy, less
// the bounty portion when the structure pays bounties.
func PrizePool(structure *models.TournamentStructure, entries int) decimal.Decimal {
	n := decimal.NewFromInt(int64(entries))
	pool := structure.BuyIn.Mul(n)
	if structure.HasBounty() {
		pool = pool.Sub(structure.BountyAmount.Decimal.Mul(n))
	}
	return pool
}

// PlacementEarnings is the payout for a placement given the total number of
// entries (buy-ins plus rebuys). Placements without a payout slot earn 0.
func PlacementEarnings(structure *models.TournamentStructure, entries, placement int) decimal.Decimal {
	if placement < 0 || placement >= len(structure.PayoutPercentages) {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(int64(structure.PayoutPercentages[placement]))
	return pct.Div(hundred).Mul(PrizePool(structure, entries)).RoundBank(2)
}

func (l *ledger) settle(p *models.TournamentPlayer, placement int, backfill bool) *models.TournamentPlayerResult {
	structure := &l.tournament.Structure
	rebuys := l.rebuysOf(p.ID)

	investment := structure.BuyIn.Mul(decimal.NewFromInt(int64(1 + rebuys))).RoundBank(2)
	placementEarnings := PlacementEarnings(structure, l.buyIns()+l.totalRebuys(), placement)
	bountyEarnings := decimal.Zero
	if structure.HasBounty() {
		credit := decimal.NewFromInt(int64(l.eliminationsBy(p.ID))).Add(l.splitCredit(p.ID))
		bountyEarnings = structure.BountyAmount.Decimal.Mul(credit).RoundBank(2)
	}
	gross := placementEarnings.Add(bountyEarnings).RoundBank(2)
	net := gross.Sub(investment).RoundBank(2)

	return &models.TournamentPlayerResult{
		TournamentID:      l.tournament.ID,
		PlayerID:          p.ID,
		Placement:         placement,
		PlacementEarnings: placementEarnings,
		BountyEarnings:    bountyEarnings,
		GrossEarnings:     gross,
		NetEarnings:       net,
		Rebuys:            rebuys,
		Investment:        investment,
		IsBackfill:        backfill,
	}
}

// buildResults replaces the stored results of the tournament. When placements
// is nil they are derived from the ledger.
func buildResults(tx db.Repository, l *ledger, placements map[uint]int, backfill bool) ([]models.TournamentPlayerResult, error) {
	if l.tournament.State() != models.StateCompleted {
		return nil, invalidState("You cannot build Tournament results until the Tournament is complete.")
	}
	if placements == nil {
		placements = l.placements()
	}
	if err := tx.DeleteResults(l.tournament.ID); err != nil {
		return nil, err
	}

	results := make([]models.TournamentPlayerResult, 0, len(l.players))
	for i := range l.players {
		p := &l.players[i]
		result := l.settle(p, placementOf(placements, p.ID), backfill)
		if err := tx.CreateResult(result); err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Placement < results[j].Placement })
	return results, nil
}

// storedBackfillPlacements keeps the admin supplied placements of a backfilled
// tournament, since its ledger order carries no meaning.
func storedBackfillPlacements(tx db.Repository, tournamentID uint) (map[uint]int, bool, error) {
	existing, err := tx.ListResults(tournamentID)
	if err != nil {
		return nil, false, err
	}
	if len(existing) == 0 || !existing[0].IsBackfill {
		return nil, false, nil
	}
	placements := make(map[uint]int, len(existing))
	for _, r := range existing {
		placements[r.PlayerID] = r.Placement
	}
	return placements, true, nil
}

// settledPlacements returns the placements results are built from, and
// whether they are the stored placements of a backfill.
func settledPlacements(tx db.Repository, l *ledger) (map[uint]int, bool, error) {
	stored, backfill, err := storedBackfillPlacements(tx, l.tournament.ID)
	if err != nil || backfill {
		return stored, backfill, err
	}
	return l.placements(), false, nil
}

func placementOf(placements map[uint]int, playerID uint) int {
	placement, ok := placements[playerID]
	if !ok {
		return models.DidNotPlace
	}
	return placement
}

func (s *Service) completedLedger(tx db.Repository, tournamentID uint, message string) (*ledger, error) {
	t, err := loadTournament(tx, tournamentID, false)
	if err != nil {
		return nil, err
	}
	if t.State() != models.StateCompleted {
		return nil, invalidState(message)
	}
	return loadLedger(tx, t)
}

// IsCompletable reports whether the ledger leaves exactly one player in play.
func (s *Service) IsCompletable(ctx context.Context, tournamentID uint) (bool, error) {
	var ok bool
	err := s.transaction(ctx, func(tx db.Repository) error {
		t, err := loadTournament(tx, tournamentID, false)
		if err != nil {
			return err
		}
		l, err := loadLedger(tx, t)
		if err != nil {
			return err
		}
		ok = l.isCompletable()
		return nil
	})
	return ok, err
}

// DeterminePlacement returns the user's placement in a completed tournament:
// the stored placement for a backfilled tournament, otherwise the ledger order.
func (s *Service) DeterminePlacement(ctx context.Context, tournamentID, userID uint) (int, error) {
	placement := models.DidNotPlace
	err := s.transaction(ctx, func(tx db.Repository) error {
		l, err := s.completedLedger(tx, tournamentID, "Cannot determine placement until tourment is completed.")
		if err != nil {
			return err
		}
		p, err := l.participant(tx, userID)
		if err != nil {
			return err
		}
		placements, _, err := settledPlacements(tx, l)
		if err != nil {
			return err
		}
		placement = placementOf(placements, p.ID)
		return nil
	})
	return placement, err
}

// TournamentValue is the total money put in: buy-in times buy-ins plus rebuys.
func (s *Service) TournamentValue(ctx context.Context, tournamentID uint) (decimal.Decimal, error) {
	value := decimal.Zero
	err := s.transaction(ctx, func(tx db.Repository) error {
		l, err := s.completedLedger(tx, tournamentID, "Tournament value cannot be calculated until a Tournament is complete.")
		if err != nil {
			return err
		}
		entries := decimal.NewFromInt(int64(l.buyIns() + l.totalRebuys()))
		value = l.tournament.Structure.BuyIn.Mul(entries).RoundBank(2)
		return nil
	})
	return value, err
}

// SettlePlayer computes a user's result without storing it.
func (s *Service) SettlePlayer(ctx context.Context, tournamentID, userID uint) (*models.TournamentPlayerResult, error) {
	var result *models.TournamentPlayerResult
	err := s.transaction(ctx, func(tx db.Repository) error {
		l, err := s.completedLedger(tx, tournamentID, "You cannot build Tournament results until the Tournament is complete.")
		if err != nil {
			return err
		}
		p, err := l.participant(tx, userID)
		if err != nil {
			return err
		}
		placements, backfill, err := settledPlacements(tx, l)
		if err != nil {
			return err
		}
		result = l.settle(p, placementOf(placements, p.ID), backfill)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BuildResults regenerates every result of a completed tournament from its
// ledger.
func (s *Service) BuildResults(ctx context.Context, actorID, tournamentID uint) ([]models.TournamentPlayerResult, error) {
	var results []models.TournamentPlayerResult
	err := s.transaction(ctx, func(tx db.Repository) error {
		t, err := loadTournament(tx, tournamentID, true)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, actorID); err != nil {
			return err
		}
		l, err := loadLedger(tx, t)
		if err != nil {
			return err
		}
		placements, backfill, err := storedBackfillPlacements(tx, t.ID)
		if err != nil {
			return err
		}
		results, err = buildResults(tx, l, placements, backfill)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Results returns the stored results ordered by placement.
func (s *Service) Results(ctx context.Context, tournamentID uint) ([]models.TournamentPlayerResult, error) {
	var results []models.TournamentPlayerResult
	err := s.transaction(ctx, func(tx db.Repository) error {
		if _, err := loadTournament(tx, tournamentID, false); err != nil {
			return err
		}
		var err error
		results, err = tx.ListResults(tournamentID)
		return err
	})
	return results, err
}
