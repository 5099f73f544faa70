package workflow

import (
	"context"

	"github.com/warpmetrics/warp-coder/internal/codehost"
	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/names"
)

// awaitReplyExecutor watches the issue thread for a user reply to the
// most recent clarification question. Waiting-capable: it only observes
// remote state and runs inline on the scheduler thread.
type awaitReplyExecutor struct{}

func (awaitReplyExecutor) Name() string { return ExecAwaitReply }

func (awaitReplyExecutor) ResultTypes() []string {
	return []string{names.ResultWaiting, "replied"}
}

func (awaitReplyExecutor) Execute(ctx context.Context, run *executor.Run, ec *executor.Context) (*executor.Result, error) {
	comments, err := ec.Clients.Issues.GetIssueComments(ctx, run.Repo, run.Number)
	if err != nil {
		return nil, err
	}

	if !codehost.UserRepliedAfterQuestion(comments) {
		return &executor.Result{Type: names.ResultWaiting}, nil
	}

	reply := codehost.LastNonBotComment(comments)
	next := map[string]any{
		optSessionID: executor.OptString(ec.ActOpts, optSessionID),
		optQuestion:  executor.OptString(ec.ActOpts, optQuestion),
	}
	outcome := map[string]any{}
	if reply != nil {
		next[optReply] = reply.Body
		outcome[optReply] = reply.Body
	}

	return &executor.Result{
		Type:        "replied",
		OutcomeOpts: outcome,
		NextActOpts: next,
	}, nil
}

// awaitDeployExecutor waits for the operator to move the card into the
// deploy column.
type awaitDeployExecutor struct{}

func (awaitDeployExecutor) Name() string { return ExecAwaitDeploy }

func (awaitDeployExecutor) ResultTypes() []string {
	return []string{names.ResultWaiting, "ready"}
}

func (awaitDeployExecutor) Execute(_ context.Context, run *executor.Run, ec *executor.Context) (*executor.Result, error) {
	if run.BoardItem == nil || run.BoardItem.Column != names.ColumnDeploy {
		return &executor.Result{Type: names.ResultWaiting}, nil
	}

	return &executor.Result{
		Type:        "ready",
		NextActOpts: map[string]any{optPRs: ec.ActOpts[optPRs]},
	}, nil
}

var (
	_ executor.Executor = awaitReplyExecutor{}
	_ executor.Executor = awaitDeployExecutor{}
)
