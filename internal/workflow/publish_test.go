package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpmetrics/warp-coder/internal/coder"
	"github.com/warpmetrics/warp-coder/internal/notify"
)

// failingNotify rejects every comment.
type failingNotify struct{ err error }

func (f failingNotify) Comment(context.Context, string, notify.Message) error { return f.err }

func TestPublishSuccess(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#81", 81)
	env.coder.Script(&coder.Result{Text: "Added a /healthz endpoint with readiness checks."}, nil)

	res, err := publishExecutor{}.Execute(context.Background(), run, env.context(nil))
	require.NoError(t, err)
	require.Equal(t, "success", res.Type)
	require.Equal(t, "Added a /healthz endpoint with readiness checks.", res.OutcomeOpts[optChangelog])

	posted := env.notes.ForIssue(run.IssueID)
	require.Len(t, posted, 1)
	require.Equal(t, "Released", posted[0].Message.Title)
	require.Contains(t, posted[0].Message.Body, "Issue #81")
	require.Contains(t, posted[0].Message.Body, "/healthz endpoint")

	notes, err := env.memory.Read()
	require.NoError(t, err)
	require.Contains(t, notes, "released #81: Add healthcheck")
}

func TestPublishChangelogDegradesToTitle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#82", 82)
	env.coder.Script(nil, errors.New("coder offline"))

	res, err := publishExecutor{}.Execute(context.Background(), run, env.context(nil))
	require.NoError(t, err)
	require.Equal(t, "success", res.Type)
	require.Equal(t, run.Title, res.OutcomeOpts[optChangelog])
}

func TestPublishNotifyFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	run := env.run("acme/api#83", 83)

	ec := env.context(nil)
	ec.Clients.Notify = failingNotify{err: errors.New("comment API down")}

	res, err := publishExecutor{}.Execute(context.Background(), run, ec)
	require.NoError(t, err)
	require.Equal(t, "release_failed", res.Type)
	require.Contains(t, res.Error, "comment API down")

	// No release line is remembered for a failed release.
	notes, readErr := env.memory.Read()
	require.NoError(t, readErr)
	require.Empty(t, notes)
}
