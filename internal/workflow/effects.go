package workflow

import (
	"context"
	"fmt"

	"github.com/warpmetrics/warp-coder/internal/codehost"
	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/hooks"
	"github.com/warpmetrics/warp-coder/internal/names"
	"github.com/warpmetrics/warp-coder/internal/notify"
)

// askUserEffect posts the clarification question on the issue, marked so
// await_reply can tell bot comments from user replies.
func askUserEffect(ctx context.Context, run *executor.Run, result *executor.Result, ec *executor.Context) error {
	body := fmt.Sprintf("%s\n\n%s", result.Question, codehost.MarkerQuestion)
	return ec.Clients.Notify.Comment(ctx, run.IssueID, notify.Message{
		Repo:  run.Repo,
		RunID: run.ID,
		Title: "Clarification needed",
		Body:  body,
	})
}

// errorReportEffect posts the failure on the issue so the operator sees
// why the card moved to blocked.
func errorReportEffect(ctx context.Context, run *executor.Run, result *executor.Result, ec *executor.Context) error {
	body := fmt.Sprintf("%s\n\n%s", result.Error, codehost.ErrorMarker(result.Error))
	return ec.Clients.Notify.Comment(ctx, run.IssueID, notify.Message{
		Repo:  run.Repo,
		RunID: run.ID,
		Title: "Run blocked",
		Body:  body,
	})
}

// mergedEffect runs the operator's onMerged hook. Hook failures here are
// best-effort; the merge has already happened.
func mergedEffect(ctx context.Context, run *executor.Run, result *executor.Result, ec *executor.Context) error {
	prNumber := 0
	if len(result.PRs) > 0 {
		prNumber = result.PRs[0].PRNumber
	}
	env := hookEnv(run, BranchName(run.Number), prNumber)
	res, err := ec.Clients.Hooks.Run(ctx, hooks.OnMerged, ec.Config.Hooks.OnMerged, env)
	if err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("hook %s exited with code %d: %s", res.Name, res.ExitCode, res.Stderr)
	}
	return nil
}

// deployedEffect advances deploy-batch siblings: each one gets a Deployed
// outcome on its deploy group and a Release act, so the next poll carries
// it into the release phase alongside the trigger.
func deployedEffect(ctx context.Context, run *executor.Run, result *executor.Result, ec *executor.Context) error {
	siblings, _ := ec.Extra[extraSiblings].([]SiblingRun)
	if len(siblings) == 0 {
		return nil
	}

	batch := ec.Clients.Ledger.NewBatch()
	opts := map[string]any{optBatch: result.BatchedIssues}
	for _, sibling := range siblings {
		container := sibling.GroupID
		if container == "" {
			container = sibling.RunID
		}
		outcomeID := batch.Outcome(container, names.OutcomeDeployed, opts)
		batch.Act(outcomeID, names.ActRelease, nil)
	}
	return batch.Flush(ctx)
}
