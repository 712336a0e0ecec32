// Package tournament is the settlement engine: the tournament lifecycle, the
// elimination ledger, placement and payout calculation, and backfill of
// tournaments played off the system.
package tournament

import (
	"context"
	"errors"
	"log"
	"time"

	"pokerstats/internal/db"
	"pokerstats/internal/db/models"

	"github.com/google/uuid"
)

type EventType string

const (
	EventStarted          EventType = "started"
	EventCompleted        EventType = "completed"
	EventCompletionUndone EventType = "completion_undone"
	EventStartUndone      EventType = "start_undone"
	EventBackfilled       EventType = "backfilled"
	EventTotalsRefreshed  EventType = "totals_refreshed"
)

// Event describes a committed lifecycle transition.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	TournamentID uint      `json:"tournament_id"`
	ActorID      uint      `json:"actor_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notifier receives lifecycle events after their transaction commits.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type Service struct {
	repo     db.Repository
	notifier Notifier
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithClock replaces time.Now. Ledger ordering relies on the clock, so tests
// pass a clock that always moves forward.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo db.Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp is truncated to what postgres stores so that values read back
// compare equal to the ones written.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) transaction(ctx context.Context, fn func(tx db.Repository) error) error {
	err := s.repo.Transaction(ctx, fn)

	var corrupt *corruptRosterError
	if errors.As(err, &corrupt) {
		healErr := s.repo.Transaction(ctx, func(tx db.Repository) error {
			for _, id := range corrupt.duplicates {
				if err := tx.DeletePlayer(id); err != nil {
					return err
				}
			}
			return nil
		})
		if healErr != nil {
			log.Printf("Failed to remove duplicate tournament players %v: %v", corrupt.duplicates, healErr)
		}
		return corrupt.err
	}
	return err
}

func (s *Service) notify(ctx context.Context, kind EventType, tournamentID, actorID uint) {
	if s.notifier == nil {
		return
	}
	event := Event{
		ID:           uuid.NewString(),
		Type:         kind,
		TournamentID: tournamentID,
		ActorID:      actorID,
		OccurredAt:   s.timestamp(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		log.Printf("Error notifying %s for tournament %d: %v", kind, tournamentID, err)
	}
}

func audit(tx db.Repository, t *models.Tournament, actorID uint, action string) error {
	return tx.CreateRecordLog(&models.RecordLog{
		Entity:   "tournaments",
		Action:   action,
		RecordID: t.ID,
		ActorID:  actorID,
	})
}

func loadTournament(tx db.Repository, id uint, lock bool) (*models.Tournament, error) {
	var (
		t   *models.Tournament
		err error
	)
	if lock {
		t, err = tx.LockTournament(id)
	} else {
		t, err = tx.GetTournament(id)
	}
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, notFound("Tournament %d does not exist.", id)
	}
	return t, nil
}

func loadUser(tx db.Repository, id uint) (*models.User, error) {
	u, err := tx.GetUser(id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, notFound("User %d does not exist.", id)
	}
	return u, nil
}

func requireAdmin(t *models.Tournament, actorID uint) error {
	if t.AdminID != actorID {
		return permissionDenied("You cannot update a Tournament if you're not the admin.")
	}
	return nil
}

// findPlayer returns the user's membership row, or nil if the user is not in
// the tournament. More than one row means the roster is corrupt; every row but
// the oldest is reported for removal.
func findPlayer(tx db.Repository, tournamentID, userID uint) (*models.TournamentPlayer, error) {
	players, err := tx.FindPlayers(tournamentID, userID)
	if err != nil {
		return nil, err
	}
	switch len(players) {
	case 0:
		return nil, nil
	case 1:
		return &players[0], nil
	}
	dup := &corruptRosterError{err: newError(ErrConflict, corruptRosterMessage)}
	for _, p := range players[1:] {
		dup.duplicates = append(dup.duplicates, p.ID)
	}
	return nil, dup
}

// requirePlayer is findPlayer for rules that need the user to be a member.
func requirePlayer(tx db.Repository, tournamentID, userID uint) (*models.TournamentPlayer, error) {
	p, err := findPlayer(tx, tournamentID, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		u, err := loadUser(tx, userID)
		if err != nil {
			return nil, err
		}
		return nil, validation("%s is not part of this tournament.", u.Username)
	}
	return p, nil
}
