package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/warpmetrics/warp-coder/internal/coder"
	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/gitops"
	"github.com/warpmetrics/warp-coder/internal/hooks"
)

// reviseExecutor resumes the coder session with the review feedback and
// pushes the fixes. The revision count is threaded through the act opts;
// hitting the cap yields the error result, whose graph edge records the
// max-retries outcome.
type reviseExecutor struct{}

func (reviseExecutor) Name() string { return ExecRevise }

func (reviseExecutor) ResultTypes() []string {
	return []string{"success", "max_turns", "error"}
}

func (reviseExecutor) Execute(ctx context.Context, run *executor.Run, ec *executor.Context) (*executor.Result, error) {
	cl := ec.Clients

	revision := executor.OptInt(ec.ActOpts, optRevisionCount)
	if revision >= ec.Config.MaxRevisionsOrDefault() {
		return errorResult("error", fmt.Sprintf("revision cap reached after %d attempts", revision)), nil
	}

	repoURL := repoURLFor(ec.Config.Repos, run.Repo)
	workdir := gitops.RepoWorkdir(run.IssueID, repoURL, ec.Config.Repos)
	branch := BranchName(run.Number)

	if fresh, err := ensureWorkdir(ctx, ec, workdir, repoURL); err != nil {
		return errorResult("error", err.Error()), nil
	} else if fresh {
		// Daemon restarted since implement ran; the bot branch already
		// exists on the remote.
		if err := cl.Git.SwitchBranch(workdir, branch); err != nil {
			return errorResult("error", err.Error()), nil
		}
	}

	res, err := cl.Coder.Run(ctx, coder.Request{
		Prompt:          revisePrompt(run, executor.OptString(ec.ActOpts, optFeedback)),
		Workdir:         workdir,
		SessionID:       executor.OptString(ec.ActOpts, optSessionID),
		MaxTurns:        ec.Config.Claude.MaxTurns,
		AllowedTools:    ec.Config.Claude.AllowedTools,
		DisallowedTools: ec.Config.Claude.DisallowedTools,
	})
	if err != nil {
		return errorResult("error", err.Error()), nil
	}

	if res.MaxTurns() {
		next := passthroughOpts(ec.ActOpts)
		next[optSessionID] = res.SessionID
		next[optRetryCount] = executor.OptInt(ec.ActOpts, optRetryCount) + 1
		return withTrace(&executor.Result{
			Type:        "max_turns",
			SessionID:   res.SessionID,
			NextActOpts: next,
		}, res), nil
	}

	if hookRes := runHook(ctx, ec, hooks.OnBeforePush, ec.Config.Hooks.OnBeforePush, hookEnv(run, branch, 0)); hookRes.Failed() {
		return hookFailure("error", hookRes), nil
	}
	if _, err := cl.Git.CommitAll(workdir, fmt.Sprintf("address review feedback (#%d)", run.Number)); err != nil {
		return errorResult("error", err.Error()), nil
	}
	if err := cl.Git.Push(ctx, workdir); err != nil {
		return errorResult("error", err.Error()), nil
	}

	next := passthroughOpts(ec.ActOpts)
	next[optSessionID] = res.SessionID
	next[optRevisionCount] = revision + 1
	delete(next, optFeedback)

	return withTrace(&executor.Result{
		Type:        "success",
		SessionID:   res.SessionID,
		PRs:         prRefsFromOpts(ec.ActOpts),
		NextActOpts: next,
	}, res), nil
}

// passthroughOpts copies the act opts forward so PR refs and counters
// survive the transition.
func passthroughOpts(opts map[string]any) map[string]any {
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		out[k] = v
	}
	return out
}

func revisePrompt(run *executor.Run, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The review of your changes for issue #%d requested changes.\n\n", run.Number)
	if feedback != "" {
		fmt.Fprintf(&b, "Review feedback:\n%s\n\n", feedback)
	}
	b.WriteString("Address the feedback on the current branch.\n")
	return b.String()
}

var _ executor.Executor = reviseExecutor{}
