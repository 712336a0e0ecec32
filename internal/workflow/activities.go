package temporal

import (
	"context"
	"fmt"
	"time"

	"pokerstats/config"
	"pokerstats/internal/db"
	"pokerstats/internal/db/models"
	"pokerstats/internal/nats"
	"pokerstats/internal/totals"
	"pokerstats/internal/tournament"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// Activities are registered as a struct so the worker shares one repository.
type Activities struct {
	Repo   db.Repository
	Totals *totals.Cache
	// SubjectPrefix is where refresh announcements are published.
	SubjectPrefix string
}

func NewActivities(repo db.Repository, subjectPrefix string) *Activities {
	return &Activities{Repo: repo, Totals: totals.NewCache(repo), SubjectPrefix: subjectPrefix}
}

// TournamentPlayers returns the user ids of a completed tournament's players.
func (a *Activities) TournamentPlayers(ctx context.Context, tournamentID uint) ([]uint, error) {
	repo := a.Repo.WithContext(ctx)
	t, err := repo.GetTournament(tournamentID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("tournament %d does not exist", tournamentID), "NotFound", nil)
	}
	if t.State() != models.StateCompleted {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("tournament %d is not completed", tournamentID), "InvalidState", nil)
	}

	players, err := repo.ListPlayers(tournamentID)
	if err != nil {
		return nil, err
	}
	userIDs := make([]uint, 0, len(players))
	for _, p := range players {
		userIDs = append(userIDs, p.UserID)
	}
	activity.GetLogger(ctx).Info("Loaded tournament players", "TournamentID", tournamentID, "Players", len(userIDs))
	return userIDs, nil
}

// RebuildTotals brings the user's snapshots up to date and returns how many
// there are.
func (a *Activities) RebuildTotals(ctx context.Context, userID uint) (int, error) {
	snapshots, err := a.Totals.GetOrBuild(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild totals for user %d: %w", userID, err)
	}
	return len(snapshots), nil
}

// AnnounceRefresh publishes a totals_refreshed event for the tournament. The
// JetStream context comes from the worker's background activity context; a
// worker started without one skips the announcement.
func (a *Activities) AnnounceRefresh(ctx context.Context, result RefreshResult) error {
	logger := activity.GetLogger(ctx)
	js, ok := config.JetStreamFromContext(ctx)
	if !ok {
		logger.Info("No JetStream configured, skipping refresh announcement", "TournamentID", result.TournamentID)
		return nil
	}

	info := activity.GetInfo(ctx)
	event := tournament.Event{
		ID:           "totals-refreshed-" + info.WorkflowExecution.RunID,
		Type:         tournament.EventTotalsRefreshed,
		TournamentID: result.TournamentID,
		OccurredAt:   time.Now().UTC(),
	}
	if err := nats.NewEventNotifier(js, a.SubjectPrefix).Notify(ctx, event); err != nil {
		return err
	}
	logger.Info("Announced totals refresh", "TournamentID", result.TournamentID, "Subject", nats.Subject(a.SubjectPrefix, event))
	return nil
}
