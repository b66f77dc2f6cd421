package jobrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow executes the job whose id is the workflow id. A failed job fails
// the workflow so the start-level retry policy schedules the next attempt.
func Workflow(ctx workflow.Context) error {
	jobID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if jobID == "" {
		return fmt.Errorf("jobrun: missing job_id")
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    time.Minute,
		// Attempts are counted on the job row; retries happen at workflow level.
		RetryPolicy: &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out RunResult
	if err := workflow.ExecuteActivity(ctx, ActivityRun, jobID).Get(ctx, &out); err != nil {
		return err
	}
	if out.Status == "failed" {
		return fmt.Errorf("job %s failed at stage %s: %s", jobID, out.Stage, out.Error)
	}
	if !out.Terminal() {
		return fmt.Errorf("job %s ended without a terminal status (%s)", jobID, out.Status)
	}
	return nil
}
