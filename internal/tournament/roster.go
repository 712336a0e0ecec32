package tournament

import (
	"context"

	"pokerstats/internal/db"
	"pokerstats/internal/db/models"
)

func (s *Service) lockInactiveForRoster(tx db.Repository, tournamentID, actorID uint, completedMsg, startedMsg string) (*models.Tournament, error) {
	t, err := loadTournament(tx, tournamentID, true)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(t, actorID); err != nil {
		return nil, err
	}
	switch t.State() {
	case models.StateCompleted:
		return nil, invalidState(completedMsg)
	case models.StateActive:
		return nil, invalidState(startedMsg)
	}
	return t, nil
}

// AddPlayer enrolls userID directly, without an invite.
func (s *Service) AddPlayer(ctx context.Context, actorID, tournamentID, userID uint) (*models.TournamentPlayer, error) {
	var player *models.TournamentPlayer
	err := s.transaction(ctx, func(tx db.Repository) error {
		t, err := s.lockInactiveForRoster(tx, tournamentID, actorID,
			"You can't add players to a Tournment that is completed.",
			"You can't add players to a Tournment that is started.")
		if err != nil {
			return err
		}
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		player, err = addPlayer(tx, t, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

func addPlayer(tx db.Repository, t *models.Tournament, user *models.User) (*models.TournamentPlayer, error) {
	existing, err := findPlayer(tx, t.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, validation("%s is already added to this tournament.", user.Username)
	}
	player := &models.TournamentPlayer{TournamentID: t.ID, UserID: user.ID}
	if err := tx.CreatePlayer(player); err != nil {
		return nil, err
	}
	player.User = *user
	return player, nil
}

// RemovePlayer takes a user off the roster of an INACTIVE tournament, along
// with any invite they still hold.
func (s *Service) RemovePlayer(ctx context.Context, actorID, tournamentID, userID uint) error {
	return s.transaction(ctx, func(tx db.Repository) error {
		t, err := s.lockInactiveForRoster(tx, tournamentID, actorID,
			"You can't remove players from a Tournment that is completed",
			"You can't remove players from a Tournment that is started.")
		if err != nil {
			return err
		}
		if userID == t.AdminID {
			return validation("You can't remove yourself from the Tournament.")
		}
		player, err := requirePlayer(tx, t.ID, userID)
		if err != nil {
			return err
		}
		invites, err := tx.FindInvites(t.ID, userID)
		if err != nil {
			return err
		}
		for _, invite := range invites {
			if err := deleteInvite(tx, invite, false); err != nil {
				return err
			}
		}
		return tx.DeletePlayer(player.ID)
	})
}

// SendInvite reserves a roster spot for userID that becomes a real entry once
// they join.
func (s *Service) SendInvite(ctx context.Context, actorID, tournamentID, userID uint) (*models.TournamentInvite, error) {
	var invite *models.TournamentInvite
	err := s.transaction(ctx, func(tx db.Repository) error {
		t, err := loadTournament(tx, tournamentID, true)
		if err != nil {
			return err
		}
		if t.AdminID != actorID {
			return permissionDenied("You can't send invites unless you're the admin.")
		}
		if userID == actorID {
			return validation("You can't invite yourself to the Tournament.")
		}
		switch t.State() {
		case models.StateCompleted:
			return invalidState("You can't invite to a Tournment that's completed.")
		case models.StateActive:
			return invalidState("You can't invite to a Tournment that's started.")
		}
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		pending, err := tx.FindInvites(t.ID, userID)
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return validation("%s has already been invited.", user.Username)
		}
		existing, err := findPlayer(tx, t.ID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return validation("%s is already in this tournament.", user.Username)
		}

		if _, err := addPlayer(tx, t, user); err != nil {
			return err
		}
		invite = &models.TournamentInvite{TournamentID: t.ID, SendToID: userID, SentFromID: actorID}
		if err := tx.CreateInvite(invite); err != nil {
			return err
		}
		invite.SendTo = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// Uninvite withdraws a pending invite and the reserved roster spot.
func (s *Service) Uninvite(ctx context.Context, actorID, tournamentID, userID uint) error {
	return s.transaction(ctx, func(tx db.Repository) error {
		t, err := loadTournament(tx, tournamentID, true)
		if err != nil {
			return err
		}
		if t.AdminID != actorID {
			return permissionDenied("You can't remove invites unless you're the admin.")
		}
		invites, err := tx.FindInvites(t.ID, userID)
		if err != nil {
			return err
		}
		if len(invites) == 0 {
			return notFound("That player does not have an invition to this tournament.")
		}
		for i, invite := range invites {
			if err := deleteInvite(tx, invite, i == 0); err != nil {
				return err
			}
		}
		return nil
	})
}

// JoinViaInvite accepts the caller's pending invite.
func (s *Service) JoinViaInvite(ctx context.Context, userID, tournamentID uint) (*models.TournamentPlayer, error) {
	var player *models.TournamentPlayer
	err := s.transaction(ctx, func(tx db.Repository) error {
		t, err := loadTournament(tx, tournamentID, true)
		if err != nil {
			return err
		}
		invites, err := tx.FindInvites(t.ID, userID)
		if err != nil {
			return err
		}
		if len(invites) == 0 {
			return notFound("You don't have an invitation to this tournament.")
		}
		for _, invite := range invites {
			if err := deleteInvite(tx, invite, false); err != nil {
				return err
			}
		}
		if player, err = findPlayer(tx, t.ID, userID); err != nil || player != nil {
			return err
		}
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		player, err = addPlayer(tx, t, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// Roster lists the players that have joined the tournament.
func (s *Service) Roster(ctx context.Context, tournamentID uint) ([]models.TournamentPlayer, error) {
	var roster []models.TournamentPlayer
	err := s.transaction(ctx, func(tx db.Repository) error {
		if _, err := loadTournament(tx, tournamentID, false); err != nil {
			return err
		}
		players, err := tx.ListPlayers(tournamentID)
		if err != nil {
			return err
		}
		invites, err := tx.ListInvites(tournamentID)
		if err != nil {
			return err
		}
		invited := map[uint]bool{}
		for _, invite := range invites {
			invited[invite.SendToID] = true
		}
		roster = make([]models.TournamentPlayer, 0, len(players))
		for _, p := range players {
			if !invited[p.UserID] {
				roster = append(roster, p)
			}
		}
		return nil
	})
	return roster, err
}

func (s *Service) PendingInvites(ctx context.Context, tournamentID uint) ([]models.TournamentInvite, error) {
	return s.repo.WithContext(ctx).ListInvites(tournamentID)
}

func (s *Service) InvitesForUser(ctx context.Context, userID uint) ([]models.TournamentInvite, error) {
	return s.repo.WithContext(ctx).ListInvitesForUser(userID)
}
