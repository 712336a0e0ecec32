package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// NewWorker registers the refresh workflow and its activities. ctx becomes the
// parent of every activity context, so values stored on it (the JetStream
// context) reach the activities.
func NewWorker(ctx context.Context, c client.Client, taskQueue string, activities *Activities) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{BackgroundActivityContext: ctx})
	w.RegisterWorkflowWithOptions(RefreshTotalsWorkflow, workflow.RegisterOptions{Name: RefreshTotalsWorkflowName})
	w.RegisterActivity(activities)
	return w
}

// Scheduler starts totals refreshes on the worker's task queue.
type Scheduler struct {
	client    client.Client
	taskQueue string
}

func NewScheduler(c client.Client, taskQueue string) *Scheduler {
	return &Scheduler{client: c, taskQueue: taskQueue}
}

func (s *Scheduler) ScheduleRefresh(ctx context.Context, tournamentID uint) error {
	_, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        fmt.Sprintf("refresh-totals-%d", tournamentID),
		TaskQueue: s.taskQueue,
	}, RefreshTotalsWorkflowName, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to start totals refresh for tournament %d: %w", tournamentID, err)
	}
	return nil
}
