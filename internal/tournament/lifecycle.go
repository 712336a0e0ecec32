package tournament

import (
	"context"
	"strings"

	"pokerstats/internal/db"
	"pokerstats/internal/db/models"
)

// CreateTournament creates an INACTIVE tournament administered by adminID and
// enrolls the admin as its first player.
func (s *Service) CreateTournament(ctx context.Context, adminID uint, title string, structureID uint) (*models.Tournament, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validation("A Tournament needs a title.")
	}

	var t *models.Tournament
	err := s.transaction(ctx, func(tx db.Repository) error {
		if _, err := loadUser(tx, adminID); err != nil {
			return err
		}
		structure, err := tx.GetStructure(structureID)
		if err != nil {
			return err
		}
		if structure == nil {
			return notFound("Tournament Structure %d does not exist.", structureID)
		}
		if structure.UserID != adminID {
			return permissionDenied("You cannot use a Tournament Structure that you don't own.")
		}

		t = &models.Tournament{Title: title, AdminID: adminID, StructureID: structure.ID}
		if err := tx.CreateTournament(t); err != nil {
			return err
		}
		t.Structure = *structure
		return tx.CreatePlayer(&models.TournamentPlayer{TournamentID: t.ID, UserID: adminID})
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetTournament(ctx context.Context, id uint) (*models.Tournament, error) {
	var t *models.Tournament
	err := s.transaction(ctx, func(tx db.Repository) error {
		var err error
		t, err = loadTournament(tx, id, false)
		return err
	})
	return t, err
}

func (s *Service) ListTournaments(ctx context.Context, adminID uint) ([]models.Tournament, error) {
	return s.repo.WithContext(ctx).ListTournamentsByAdmin(adminID)
}

func (s *Service) State(ctx context.Context, id uint) (models.TournamentState, error) {
	t, err := s.GetTournament(ctx, id)
	if err != nil {
		return "", err
	}
	return t.State(), nil
}

// Start moves an INACTIVE tournament to ACTIVE. Invited users who never joined
// are dropped from the roster.
func (s *Service) Start(ctx context.Context, actorID, tournamentID uint) (*models.Tournament, error) {
	var t *models.Tournament
	err := s.transaction(ctx, func(tx db.Repository) error {
		var err error
		if t, err = loadTournament(tx, tournamentID, true); err != nil {
			return err
		}
		if err := requireAdmin(t, actorID); err != nil {
			return err
		}
		switch t.State() {
		case models.StateCompleted:
			return invalidState("You can't start a Tournament that has already been completed.")
		case models.StateActive:
			return invalidState("This tournament has already been started.")
		}
		if err := dropPendingInvites(tx, t.ID); err != nil {
			return err
		}

		now := s.timestamp()
		t.StartedAt = &now
		if err := tx.UpdateTournamentState(t); err != nil {
			return err
		}
		return audit(tx, t, actorID, "start")
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, EventStarted, t.ID, actorID)
	return t, nil
}

func dropPendingInvites(tx db.Repository, tournamentID uint) error {
	invites, err := tx.ListInvites(tournamentID)
	if err != nil {
		return err
	}
	for _, invite := range invites {
		if err := deleteInvite(tx, invite, true); err != nil {
			return err
		}
	}
	return nil
}

// deleteInvite removes the invite and, when dropPlayer is set, the membership
// row that was created alongside it.
func deleteInvite(tx db.Repository, invite models.TournamentInvite, dropPlayer bool) error {
	if err := tx.DeleteInvite(invite.ID); err != nil {
		return err
	}
	if !dropPlayer {
		return nil
	}
	players, err := tx.FindPlayers(invite.TournamentID, invite.SendToID)
	if err != nil {
		return err
	}
	for _, p := range players {
		if err := tx.DeletePlayer(p.ID); err != nil {
			return err
		}
	}
	return nil
}

// Complete settles an ACTIVE tournament once a single player is left in play.
func (s *Service) Complete(ctx context.Context, actorID, tournamentID uint) (*models.Tournament, error) {
	var t *models.Tournament
	err := s.transaction(ctx, func(tx db.Repository) error {
		var err error
		if t, err = loadTournament(tx, tournamentID, true); err != nil {
			return err
		}
		if err := requireAdmin(t, actorID); err != nil {
			return err
		}
		switch t.State() {
		case models.StateCompleted:
			return invalidState("This tournament is already completed.")
		case models.StateInactive:
			return invalidState("You can't complete a Tournament that has not been started.")
		}
		l, err := loadLedger(tx, t)
		if err != nil {
			return err
		}
		return s.complete(tx, l, actorID, nil, false)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, EventCompleted, t.ID, actorID)
	return t, nil
}

// complete marks the tournament completed and writes its results. The
// tournament inside l is updated in place.
func (s *Service) complete(tx db.Repository, l *ledger, actorID uint, placements map[uint]int, backfill bool) error {
	if !l.isCompletable() {
		return validation("Every player must be eliminated before completing a Tournament")
	}
	now := s.timestamp()
	l.tournament.CompletedAt = &now
	if err := tx.UpdateTournamentState(l.tournament); err != nil {
		return err
	}
	if _, err := buildResults(tx, l, placements, backfill); err != nil {
		return err
	}
	action := "complete"
	if backfill {
		action = "backfill"
	}
	return audit(tx, l.tournament, actorID, action)
}

// UndoComplete returns a COMPLETED tournament to ACTIVE with an empty ledger
// and no results.
func (s *Service) UndoComplete(ctx context.Context, actorID, tournamentID uint) (*models.Tournament, error) {
	var t *models.Tournament
	err := s.transaction(ctx, func(tx db.Repository) error {
		var err error
		if t, err = loadTournament(tx, tournamentID, true); err != nil {
			return err
		}
		if err := requireAdmin(t, actorID); err != nil {
			return err
		}
		if t.State() != models.StateCompleted {
			return invalidState("The tournament is not completed. Nothing to undo.")
		}
		if err := resetLedger(tx, t.ID); err != nil {
			return err
		}
		t.CompletedAt = nil
		if err := tx.UpdateTournamentState(t); err != nil {
			return err
		}
		return audit(tx, t, actorID, "undo_complete")
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, EventCompletionUndone, t.ID, actorID)
	return t, nil
}

// UndoStart returns an ACTIVE tournament to INACTIVE and wipes its ledger.
func (s *Service) UndoStart(ctx context.Context, actorID, tournamentID uint) (*models.Tournament, error) {
	var t *models.Tournament
	err := s.transaction(ctx, func(tx db.Repository) error {
		var err error
		if t, err = loadTournament(tx, tournamentID, true); err != nil {
			return err
		}
		if err := requireAdmin(t, actorID); err != nil {
			return err
		}
		switch t.State() {
		case models.StateCompleted:
			return invalidState("You must undo the completion before un-starting the Tournament.")
		case models.StateInactive:
			return invalidState("The tournament is not active. Nothing to undo.")
		}
		if err := resetLedger(tx, t.ID); err != nil {
			return err
		}
		t.StartedAt = nil
		if err := tx.UpdateTournamentState(t); err != nil {
			return err
		}
		return audit(tx, t, actorID, "undo_start")
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, EventStartUndone, t.ID, actorID)
	return t, nil
}

// resetLedger deletes everything recorded during play, children first.
func resetLedger(tx db.Repository, tournamentID uint) error {
	steps := []func(uint) error{
		tx.DeleteResults,
		tx.DeleteSplitEliminations,
		tx.DeleteEliminations,
		tx.DeleteRebuys,
	}
	for _, step := range steps {
		if err := step(tournamentID); err != nil {
			return err
		}
	}
	return nil
}
