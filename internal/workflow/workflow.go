package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const RefreshTotalsWorkflowName = "RefreshTotalsWorkflow"

type RefreshResult struct {
	TournamentID uint
	Users        int
	Snapshots    int
}

// RefreshTotalsWorkflow rebuilds the aggregate totals of every player of a
// completed tournament, then announces the refresh on the event stream.
func RefreshTotalsWorkflow(ctx workflow.Context, tournamentID uint) (RefreshResult, error) {
	result := RefreshResult{TournamentID: tournamentID}
	logger := workflow.GetLogger(ctx)

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var a *Activities
	var userIDs []uint
	if err := workflow.ExecuteActivity(ctx, a.TournamentPlayers, tournamentID).Get(ctx, &userIDs); err != nil {
		return result, err
	}
	result.Users = len(userIDs)

	futures := make([]workflow.Future, 0, len(userIDs))
	for _, userID := range userIDs {
		futures = append(futures, workflow.ExecuteActivity(ctx, a.RebuildTotals, userID))
	}
	for i, f := range futures {
		var snapshots int
		if err := f.Get(ctx, &snapshots); err != nil {
			logger.Error("Totals rebuild failed", "UserID", userIDs[i], "Error", err)
			return result, err
		}
		result.Snapshots += snapshots
	}

	logger.Info("Totals refreshed", "TournamentID", tournamentID, "Users", result.Users, "Snapshots", result.Snapshots)

	// Totals are already stored; a failed announcement only gets logged.
	if err := workflow.ExecuteActivity(ctx, a.AnnounceRefresh, result).Get(ctx, nil); err != nil {
		logger.Warn("Failed to announce totals refresh", "TournamentID", tournamentID, "Error", err)
	}
	return result, nil
}
