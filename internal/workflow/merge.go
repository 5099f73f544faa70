package workflow

import (
	"context"
	"fmt"

	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/hooks"
)

// mergeExecutor merges the approved PR. A merge the code host refuses
// (conflicts, branch protection) is the merge_failed result, a definite
// signal rather than an error to retry.
type mergeExecutor struct{}

func (mergeExecutor) Name() string { return ExecMerge }

func (mergeExecutor) ResultTypes() []string {
	return []string{"success", "merge_failed", "error"}
}

func (mergeExecutor) Execute(ctx context.Context, run *executor.Run, ec *executor.Context) (*executor.Result, error) {
	cl := ec.Clients

	pr, err := resolvePR(ctx, run, ec)
	if err != nil {
		return errorResult("error", err.Error()), nil
	}

	branch, err := cl.PRs.GetPRBranch(ctx, pr.Repo, pr.PRNumber)
	if err != nil {
		branch = BranchName(run.Number)
	}

	if hookRes := runHook(ctx, ec, hooks.OnBeforeMerge, ec.Config.Hooks.OnBeforeMerge, hookEnv(run, branch, pr.PRNumber)); hookRes.Failed() {
		return hookFailure("error", hookRes), nil
	}

	state, err := cl.PRs.GetPRState(ctx, pr.Repo, pr.PRNumber)
	if err != nil {
		return errorResult("error", err.Error()), nil
	}
	if state != "open" {
		return errorResult("merge_failed", fmt.Sprintf("PR #%d is %s", pr.PRNumber, state)), nil
	}

	if err := cl.PRs.MergePR(ctx, pr.Repo, pr.PRNumber); err != nil {
		return errorResult("merge_failed", err.Error()), nil
	}

	return &executor.Result{
		Type: "success",
		PRs:  []executor.PRRef{*pr},
		OutcomeOpts: map[string]any{
			optPRs: prRefsToOpts([]executor.PRRef{*pr}),
		},
		NextActOpts: map[string]any{
			optPRs: prRefsToOpts([]executor.PRRef{*pr}),
		},
	}, nil
}

var _ executor.Executor = mergeExecutor{}
