package tournament

import (
	"context"

	"pokerstats/internal/db"
	"pokerstats/internal/db/models"

	"github.com/shopspring/decimal"
)

// ledger is everything recorded for one tournament, loaded in a single pass.
type ledger struct {
	tournament   *models.Tournament
	players      []models.TournamentPlayer
	eliminations []models.TournamentElimination
	splits       []models.TournamentSplitElimination
	rebuys       []models.TournamentRebuy
}

func loadLedger(tx db.Repository, t *models.Tournament) (*ledger, error) {
	l := &ledger{tournament: t}
	var err error
	if l.players, err = tx.ListPlayers(t.ID); err != nil {
		return nil, err
	}
	if l.eliminations, err = tx.ListEliminations(t.ID); err != nil {
		return nil, err
	}
	if l.splits, err = tx.ListSplitEliminations(t.ID); err != nil {
		return nil, err
	}
	if l.rebuys, err = tx.ListRebuys(t.ID); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *ledger) buyIns() int {
	return len(l.players)
}

func (l *ledger) totalRebuys() int {
	return len(l.rebuys)
}

// eliminationCount counts every elimination event, split or not. A split
// elimination still removes exactly one player from play.
func (l *ledger) eliminationCount() int {
	return len(l.eliminations) + len(l.splits)
}

func (l *ledger) rebuysOf(playerID uint) int {
	n := 0
	for _, r := range l.rebuys {
		if r.PlayerID == playerID {
			n++
		}
	}
	return n
}

// timesEliminated counts ordinary and split eliminations suffered by the player.
func (l *ledger) timesEliminated(playerID uint) int {
	n := 0
	for _, e := range l.eliminations {
		if e.EliminateeID == playerID {
			n++
		}
	}
	for _, e := range l.splits {
		if e.EliminateeID == playerID {
			n++
		}
	}
	return n
}

func (l *ledger) isEliminated(playerID uint) bool {
	return l.timesEliminated(playerID) > l.rebuysOf(playerID)
}

func (l *ledger) eliminationsBy(playerID uint) int {
	n := 0
	for _, e := range l.eliminations {
		if e.EliminatorID == playerID {
			n++
		}
	}
	return n
}

// splitCredit is the sum of 1/N over the split eliminations the player took
// part in, N being the number of co-eliminators.
func (l *ledger) splitCredit(playerID uint) decimal.Decimal {
	credit := decimal.Zero
	for _, split := range l.splits {
		for _, id := range split.EliminatorIDs() {
			if id == playerID {
				credit = credit.Add(decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(split.Eliminators)))))
				break
			}
		}
	}
	return credit
}

func (l *ledger) player(id uint) *models.TournamentPlayer {
	for i := range l.players {
		if l.players[i].ID == id {
			return &l.players[i]
		}
	}
	return nil
}

// canEliminate reports whether one more elimination still leaves a player in
// play.
func (l *ledger) canEliminate() bool {
	return l.eliminationCount()+1 <= l.buyIns()+l.totalRebuys()-1
}

// participant resolves a user to a player, failing if the user is not in the
// tournament.
func (l *ledger) participant(tx db.Repository, userID uint) (*models.TournamentPlayer, error) {
	return requirePlayer(tx, l.tournament.ID, userID)
}

func (l *ledger) checkEliminatee(eliminatee *models.TournamentPlayer) error {
	if l.isEliminated(eliminatee.ID) {
		return invalidState("%s has already been eliminated and has no more re-buys.", eliminatee.User.Username)
	}
	if !l.canEliminate() {
		return invalidState("You can't eliminate any more players. Complete the Tournament.")
	}
	return nil
}

func checkActive(t *models.Tournament) error {
	if t.State() != models.StateActive {
		return invalidState("You can only eliminate players if the Tournament is Active.")
	}
	return nil
}

// Eliminate records that eliminatorID knocked eliminateeID out. Both are user
// ids of tournament players.
func (s *Service) Eliminate(ctx context.Context, actorID, tournamentID, eliminatorID, eliminateeID uint) (*models.TournamentElimination, error) {
	var elimination *models.TournamentElimination
	err := s.transaction(ctx, func(tx db.Repository) error {
		t, err := loadTournament(tx, tournamentID, true)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, actorID); err != nil {
			return err
		}
		if err := checkActive(t); err != nil {
			return err
		}
		l, err := loadLedger(tx, t)
		if err != nil {
			return err
		}
		elimination, err = s.eliminate(tx, l, eliminatorID, eliminateeID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return elimination, nil
}

func (s *Service) eliminate(tx db.Repository, l *ledger, eliminatorID, eliminateeID uint, backfill bool) (*models.TournamentElimination, error) {
	eliminator, err := l.participant(tx, eliminatorID)
	if err != nil {
		return nil, err
	}
	eliminatee, err := l.participant(tx, eliminateeID)
	if err != nil {
		return nil, err
	}
	if eliminator.ID == eliminatee.ID {
		return nil, validation("%s can't eliminate themselves!", eliminator.User.Username)
	}
	if err := l.checkEliminatee(eliminatee); err != nil {
		return nil, err
	}

	elimination := &models.TournamentElimination{
		TournamentID: l.tournament.ID,
		EliminatorID: eliminator.ID,
		EliminateeID: eliminatee.ID,
		EliminatedAt: s.timestamp(),
		IsBackfill:   backfill,
	}
	if err := tx.CreateElimination(elimination); err != nil {
		return nil, err
	}
	l.eliminations = append(l.eliminations, *elimination)
	return elimination, nil
}

// SplitEliminate records one elimination credited equally to two or more
// eliminators.
func (s *Service) SplitEliminate(ctx context.Context, actorID, tournamentID uint, eliminatorIDs []uint, eliminateeID uint) (*models.TournamentSplitElimination, error) {
	var split *models.TournamentSplitElimination
	err := s.transaction(ctx, func(tx db.Repository) error {
		t, err := loadTournament(tx, tournamentID, true)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, actorID); err != nil {
			return err
		}
		if err := checkActive(t); err != nil {
			return err
		}
		l, err := loadLedger(tx, t)
		if err != nil {
			return err
		}
		split, err = s.splitEliminate(tx, l, eliminatorIDs, eliminateeID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return split, nil
}

// splitGroup resolves and validates the players of one split elimination.
func (l *ledger) splitGroup(tx db.Repository, eliminatorIDs []uint, eliminateeID uint) ([]*models.TournamentPlayer, *models.TournamentPlayer, error) {
	if len(eliminatorIDs) < 2 {
		return nil, nil, validation("A split elimination needs at least two eliminators.")
	}
	seen := map[uint]bool{}
	for _, id := range eliminatorIDs {
		if seen[id] {
			return nil, nil, validation("There is a duplicate in the list of eliminators.")
		}
		seen[id] = true
	}

	eliminatee, err := l.participant(tx, eliminateeID)
	if err != nil {
		return nil, nil, err
	}
	eliminators := make([]*models.TournamentPlayer, 0, len(eliminatorIDs))
	for _, id := range eliminatorIDs {
		p, err := l.participant(tx, id)
		if err != nil {
			return nil, nil, err
		}
		if p.ID == eliminatee.ID {
			return nil, nil, validation("%s can't eliminate themselves!", p.User.Username)
		}
		eliminators = append(eliminators, p)
	}
	return eliminators, eliminatee, nil
}

func (s *Service) splitEliminate(tx db.Repository, l *ledger, eliminatorIDs []uint, eliminateeID uint, backfill bool) (*models.TournamentSplitElimination, error) {
	eliminators, eliminatee, err := l.splitGroup(tx, eliminatorIDs, eliminateeID)
	if err != nil {
		return nil, err
	}
	if err := l.checkEliminatee(eliminatee); err != nil {
		return nil, err
	}

	split := &models.TournamentSplitElimination{
		TournamentID: l.tournament.ID,
		EliminateeID: eliminatee.ID,
		EliminatedAt: s.timestamp(),
		IsBackfill:   backfill,
	}
	for _, p := range eliminators {
		split.Eliminators = append(split.Eliminators, models.TournamentSplitEliminator{PlayerID: p.ID})
	}
	if err := tx.CreateSplitElimination(split); err != nil {
		return nil, err
	}
	l.splits = append(l.splits, *split)
	return split, nil
}

// Rebuy lets an eliminated player buy back in.
func (s *Service) Rebuy(ctx context.Context, actorID, tournamentID, userID uint) (*models.TournamentRebuy, error) {
	var rebuy *models.TournamentRebuy
	err := s.transaction(ctx, func(tx db.Repository) error {
		t, err := loadTournament(tx, tournamentID, true)
		if err != nil {
			return err
		}
		if err := requireAdmin(t, actorID); err != nil {
			return err
		}
		if !t.Structure.AllowRebuys {
			return validation("This tournament does not allow rebuys. Update the Tournament Structure.")
		}
		if t.State() != models.StateActive {
			return invalidState("You can only rebuy if the Tournament is Active.")
		}
		l, err := loadLedger(tx, t)
		if err != nil {
			return err
		}
		p, err := l.participant(tx, userID)
		if err != nil {
			return err
		}
		if !l.isEliminated(p.ID) {
			return invalidState("%s still has an active rebuy. Eliminate them before adding another rebuy.", p.User.Username)
		}
		rebuy, err = s.recordRebuy(tx, l, p.ID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rebuy, nil
}

func (s *Service) recordRebuy(tx db.Repository, l *ledger, playerID uint, backfill bool) (*models.TournamentRebuy, error) {
	rebuy := &models.TournamentRebuy{
		TournamentID: l.tournament.ID,
		PlayerID:     playerID,
		RebuyAt:      s.timestamp(),
		IsBackfill:   backfill,
	}
	if err := tx.CreateRebuy(rebuy); err != nil {
		return nil, err
	}
	l.rebuys = append(l.rebuys, *rebuy)
	return rebuy, nil
}

// IsPlayerEliminated reports whether the user has been eliminated more times
// than they rebought.
func (s *Service) IsPlayerEliminated(ctx context.Context, tournamentID, userID uint) (bool, error) {
	var eliminated bool
	err := s.transaction(ctx, func(tx db.Repository) error {
		t, err := loadTournament(tx, tournamentID, false)
		if err != nil {
			return err
		}
		l, err := loadLedger(tx, t)
		if err != nil {
			return err
		}
		p, err := l.participant(tx, userID)
		if err != nil {
			return err
		}
		eliminated = l.isEliminated(p.ID)
		return nil
	})
	return eliminated, err
}

// LedgerView is the read model of a tournament's ledger.
type LedgerView struct {
	Eliminations      []models.TournamentElimination      `json:"eliminations"`
	SplitEliminations []models.TournamentSplitElimination `json:"split_eliminations"`
	Rebuys            []models.TournamentRebuy            `json:"rebuys"`
}

// Ledger returns the tournament's ledger entries. When userID is non-zero only
// entries involving that user's player are returned.
func (s *Service) Ledger(ctx context.Context, tournamentID, userID uint) (*LedgerView, error) {
	view := &LedgerView{
		Eliminations:      []models.TournamentElimination{},
		SplitEliminations: []models.TournamentSplitElimination{},
		Rebuys:            []models.TournamentRebuy{},
	}
	err := s.transaction(ctx, func(tx db.Repository) error {
		t, err := loadTournament(tx, tournamentID, false)
		if err != nil {
			return err
		}
		l, err := loadLedger(tx, t)
		if err != nil {
			return err
		}
		if userID == 0 {
			view.Eliminations = append(view.Eliminations, l.eliminations...)
			view.SplitEliminations = append(view.SplitEliminations, l.splits...)
			view.Rebuys = append(view.Rebuys, l.rebuys...)
			return nil
		}

		p, err := l.participant(tx, userID)
		if err != nil {
			return err
		}
		for _, e := range l.eliminations {
			if e.EliminatorID == p.ID || e.EliminateeID == p.ID {
				view.Eliminations = append(view.Eliminations, e)
			}
		}
		for _, split := range l.splits {
			involved := split.EliminateeID == p.ID
			for _, id := range split.EliminatorIDs() {
				involved = involved || id == p.ID
			}
			if involved {
				view.SplitEliminations = append(view.SplitEliminations, split)
			}
		}
		for _, r := range l.rebuys {
			if r.PlayerID == p.ID {
				view.Rebuys = append(view.Rebuys, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}
