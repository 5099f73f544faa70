package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpmetrics/warp-coder/internal/coder"
	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/gitops"
)

func TestImplementSuccess(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#11", 11)
	env.makeWorkdir(t, run.IssueID)
	env.pr(run.IssueID, 120)
	env.issues.SetIssue(run.Repo, run.Number, "Please add /healthz.")
	env.coder.Script(&coder.Result{
		Subtype:   coder.SubtypeSuccess,
		SessionID: "sess-1",
		CostUSD:   0.42,
		Trace:     &coder.Trace{SessionID: "sess-1", Subtype: coder.SubtypeSuccess},
	}, nil)

	res, err := implementExecutor{}.Execute(context.Background(), run, env.context(nil))
	require.NoError(t, err)
	require.Equal(t, "success", res.Type)

	require.Equal(t, []string{"Add healthcheck (#11)"}, env.git.commits)
	require.Equal(t, 1, env.git.pushes)
	require.Equal(t, []string{BranchName(11)}, env.git.switched)

	require.Equal(t, []executor.PRRef{{Repo: "acme/api", PRNumber: 120}}, res.PRs)
	require.Equal(t, "sess-1", res.NextActOpts[optSessionID])
	require.NotNil(t, res.CostUSD)
	require.Equal(t, 0.42, *res.CostUSD)

	require.Len(t, env.coder.Requests, 1)
	prompt := env.coder.Requests[0].Prompt
	require.Contains(t, prompt, "issue #11")
	require.Contains(t, prompt, "Please add /healthz.")
	require.Contains(t, prompt, gitops.AskMarkerFile)
}

func TestImplementAskUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#12", 12)
	workdir := env.makeWorkdir(t, run.IssueID)

	markerPath := filepath.Join(workdir, gitops.AskMarkerFile)
	require.NoError(t, os.WriteFile(markerPath, []byte("Which database should back this?\n"), 0o644))

	res, err := implementExecutor{}.Execute(context.Background(), run, env.context(nil))
	require.NoError(t, err)
	require.Equal(t, "ask_user", res.Type)
	require.Equal(t, "Which database should back this?", res.Question)
	require.Equal(t, "Which database should back this?", res.OutcomeOpts[optQuestion])

	// The marker is consumed and nothing was pushed.
	_, statErr := os.Stat(markerPath)
	require.True(t, os.IsNotExist(statErr))
	require.Zero(t, env.git.pushes)
}

func TestImplementMaxTurns(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#13", 13)
	env.makeWorkdir(t, run.IssueID)
	env.coder.Script(&coder.Result{Subtype: coder.SubtypeMaxTurns, SessionID: "sess-2"}, nil)

	opts := map[string]any{optRetryCount: 2}
	res, err := implementExecutor{}.Execute(context.Background(), run, env.context(opts))
	require.NoError(t, err)
	require.Equal(t, "max_turns", res.Type)
	require.Equal(t, "sess-2", res.NextActOpts[optSessionID])
	require.Equal(t, 3, res.NextActOpts[optRetryCount])
	require.Zero(t, env.git.pushes)
}

func TestImplementResumesWithReply(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#14", 14)
	env.makeWorkdir(t, run.IssueID)

	opts := map[string]any{
		optSessionID: "sess-3",
		optQuestion:  "Which database?",
		optReply:     "Use postgres.",
	}
	_, err := implementExecutor{}.Execute(context.Background(), run, env.context(opts))
	require.NoError(t, err)

	require.Len(t, env.coder.Requests, 1)
	require.Equal(t, "sess-3", env.coder.Requests[0].SessionID)
	require.Contains(t, env.coder.Requests[0].Prompt, "Which database?")
	require.Contains(t, env.coder.Requests[0].Prompt, "Use postgres.")
}

func TestImplementHookFailureBlocksPush(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.cfg.Hooks.OnBeforePush = "echo lint failed >&2; exit 2"
	run := env.run("acme/api#15", 15)
	env.makeWorkdir(t, run.IssueID)

	res, err := implementExecutor{}.Execute(context.Background(), run, env.context(nil))
	require.NoError(t, err)
	require.Equal(t, "error", res.Type)
	require.Contains(t, res.Error, "exited with code 2")
	require.Equal(t, "lint failed\n", res.OutcomeOpts["stderr"])
	require.Zero(t, env.git.pushes)
}

func TestImplementCloneFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.git.cloneErr = os.ErrPermission
	run := env.run("acme/api#16", 16)

	res, err := implementExecutor{}.Execute(context.Background(), run, env.context(nil))
	require.NoError(t, err)
	require.Equal(t, "error", res.Type)
	require.NotEmpty(t, res.Error)
}
