package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpmetrics/warp-coder/internal/codehost"
	"github.com/warpmetrics/warp-coder/internal/executor"
)

func TestMergeSuccess(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#51", 51)
	opts := env.pr(run.IssueID, 510)

	res, err := mergeExecutor{}.Execute(context.Background(), run, env.context(opts))
	require.NoError(t, err)
	require.Equal(t, "success", res.Type)
	require.Equal(t, []string{"acme/api#510"}, env.prs.Merged)
	require.Equal(t, []executor.PRRef{{Repo: "acme/api", PRNumber: 510}}, res.PRs)
	require.Equal(t, prRefsToOpts(res.PRs), res.NextActOpts[optPRs])
}

func TestMergeClosedPR(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#52", 52)
	env.prs.AddPR(run.IssueID, codehost.PR{Repo: "acme/api", Number: 520, State: "closed"}, nil, nil)

	res, err := mergeExecutor{}.Execute(context.Background(), run, env.context(nil))
	require.NoError(t, err)
	require.Equal(t, "merge_failed", res.Type)
	require.Contains(t, res.Error, "closed")
	require.Empty(t, env.prs.Merged)
}

func TestMergeHostRefusal(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#53", 53)
	opts := env.pr(run.IssueID, 530)
	env.prs.MergeErr = errors.New("branch protection: checks pending")

	res, err := mergeExecutor{}.Execute(context.Background(), run, env.context(opts))
	require.NoError(t, err)
	require.Equal(t, "merge_failed", res.Type)
	require.Contains(t, res.Error, "branch protection")
}

func TestMergeHookFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.cfg.Hooks.OnBeforeMerge = "exit 1"
	run := env.run("acme/api#54", 54)
	opts := env.pr(run.IssueID, 540)

	res, err := mergeExecutor{}.Execute(context.Background(), run, env.context(opts))
	require.NoError(t, err)
	require.Equal(t, "error", res.Type)
	require.Empty(t, env.prs.Merged)
}

func TestMergeNoPR(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#55", 55)

	res, err := mergeExecutor{}.Execute(context.Background(), run, env.context(nil))
	require.NoError(t, err)
	require.Equal(t, "error", res.Type)
	require.Contains(t, res.Error, "no open PR")
}
