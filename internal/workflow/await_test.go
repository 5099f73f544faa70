package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpmetrics/warp-coder/internal/board"
	"github.com/warpmetrics/warp-coder/internal/codehost"
	"github.com/warpmetrics/warp-coder/internal/names"
)

func TestAwaitReplyWaiting(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#21", 21)
	env.issues.AddComment(run.Repo, run.Number, codehost.Comment{
		Author: "bot",
		Body:   "Which database?\n\n" + codehost.MarkerQuestion,
	})

	res, err := awaitReplyExecutor{}.Execute(context.Background(), run, env.context(nil))
	require.NoError(t, err)
	require.True(t, res.Waiting())
}

func TestAwaitReplyReplied(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#22", 22)
	env.issues.AddComment(run.Repo, run.Number, codehost.Comment{
		Author: "bot",
		Body:   "Which database?\n\n" + codehost.MarkerQuestion,
	})
	env.issues.AddComment(run.Repo, run.Number, codehost.Comment{
		Author: "user",
		Body:   "Use postgres.",
	})

	opts := map[string]any{optSessionID: "sess-7", optQuestion: "Which database?"}
	res, err := awaitReplyExecutor{}.Execute(context.Background(), run, env.context(opts))
	require.NoError(t, err)
	require.Equal(t, "replied", res.Type)
	require.Equal(t, "Use postgres.", res.NextActOpts[optReply])
	require.Equal(t, "sess-7", res.NextActOpts[optSessionID])
	require.Equal(t, "Which database?", res.NextActOpts[optQuestion])
	require.Equal(t, "Use postgres.", res.OutcomeOpts[optReply])
}

func TestAwaitDeploy(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#23", 23)
	prOpts := map[string]any{optPRs: []any{map[string]any{"repo": "acme/api", "prNumber": float64(9)}}}

	// No card attached: keep waiting.
	res, err := awaitDeployExecutor{}.Execute(context.Background(), run, env.context(prOpts))
	require.NoError(t, err)
	require.True(t, res.Waiting())

	// Card outside the deploy column: keep waiting.
	run.BoardItem = &board.Item{IssueID: run.IssueID, Column: names.ColumnReadyForDeploy}
	res, err = awaitDeployExecutor{}.Execute(context.Background(), run, env.context(prOpts))
	require.NoError(t, err)
	require.True(t, res.Waiting())

	// Operator moved the card: ready, PR refs carried forward.
	run.BoardItem.Column = names.ColumnDeploy
	res, err = awaitDeployExecutor{}.Execute(context.Background(), run, env.context(prOpts))
	require.NoError(t, err)
	require.Equal(t, "ready", res.Type)
	require.Equal(t, prOpts[optPRs], res.NextActOpts[optPRs])
}
