package ledger_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpmetrics/warp-coder/internal/ledger"
	"github.com/warpmetrics/warp-coder/internal/ledger/ledgertest"
	"github.com/warpmetrics/warp-coder/internal/logger"
	"github.com/warpmetrics/warp-coder/internal/names"
	warperrors "github.com/warpmetrics/warp-coder/pkg/errors"
)

func TestIDGeneration(t *testing.T) {
	t.Parallel()

	require.True(t, strings.HasPrefix(ledger.NewRunID(), "run_"))
	require.True(t, strings.HasPrefix(ledger.NewGroupID(), "grp_"))
	require.True(t, strings.HasPrefix(ledger.NewCallID(), "cal_"))
	require.True(t, strings.HasPrefix(ledger.NewOutcomeID(), "out_"))
	require.True(t, strings.HasPrefix(ledger.NewActID(), "act_"))

	require.NotEqual(t, ledger.NewRunID(), ledger.NewRunID())
}

func TestBatchFlush(t *testing.T) {
	t.Parallel()

	server := ledgertest.New(t)
	client := server.Client()
	ctx := context.Background()

	batch := client.NewBatch()
	runID := batch.Run("acme/api#1", "acme/api", "Add healthcheck")
	groupID := batch.Group(runID, "build")
	outcomeID := batch.Outcome(groupID, "Building", map[string]any{"note": "x"})
	batch.Act(outcomeID, "Implement", nil)
	require.False(t, batch.Empty())

	require.NoError(t, batch.Flush(ctx))
	require.True(t, batch.Empty())

	runs := server.Runs()
	require.Len(t, runs, 1)
	require.Equal(t, "acme/api#1", runs[0].IssueID)
	require.Equal(t, ledger.LabelIssue, runs[0].Label)

	require.Equal(t, []string{"Building"}, server.OutcomesFor(groupID))
	require.Len(t, server.ActsNamed("Implement"), 1)

	// Flushing the drained batch sends nothing.
	require.NoError(t, batch.Flush(ctx))
	require.Len(t, server.Runs(), 1)
}

func TestBatchFlushErrorClassification(t *testing.T) {
	t.Parallel()

	server := ledgertest.New(t)
	client := server.Client()
	ctx := context.Background()

	t.Run("5xx is unavailable", func(t *testing.T) {
		server.FailNextPosts(1, 500)

		batch := client.NewBatch()
		batch.Run("acme/api#2", "acme/api", "x")
		err := batch.Flush(ctx)
		require.Error(t, err)
		var unavailable *warperrors.LedgerUnavailableError
		require.ErrorAs(t, err, &unavailable)

		// Nothing was accepted; the batch retries as a whole.
		require.False(t, batch.Empty())
		require.NoError(t, batch.Flush(ctx))
	})

	t.Run("4xx is rejected", func(t *testing.T) {
		server.FailNextPosts(1, 422)

		batch := client.NewBatch()
		batch.Run("acme/api#3", "acme/api", "x")
		err := batch.Flush(ctx)
		require.Error(t, err)
		var rejected *warperrors.LedgerRejectedError
		require.ErrorAs(t, err, &rejected)
		require.Equal(t, 422, rejected.Status)
	})
}

func TestDisabledClient(t *testing.T) {
	t.Parallel()

	client := ledger.NewClient("http://ledger.invalid", "", logger.NewNop())
	require.False(t, client.Enabled())
	ctx := context.Background()

	batch := client.NewBatch()
	batch.Run("acme/api#1", "acme/api", "x")
	require.NoError(t, batch.Flush(ctx))

	runs, err := client.FindOpenIssueRuns(ctx)
	require.NoError(t, err)
	require.Empty(t, runs)

	acts, err := client.FindActsByName(ctx, "Implement")
	require.NoError(t, err)
	require.Empty(t, acts)

	require.NoError(t, client.RegisterClassifications(ctx, names.Classifications))
}

func TestFindOpenIssueRuns(t *testing.T) {
	t.Parallel()

	server := ledgertest.New(t)
	client := server.Client()
	ctx := context.Background()

	// Run A: started, pending act, one phase group.
	batchA := client.NewBatch()
	runA := batchA.Run("acme/api#1", "acme/api", "A")
	groupA := batchA.Group(runA, "build")
	startedA := batchA.Outcome(runA, names.OutcomeStarted, nil)
	actA := batchA.Act(startedA, "Implement", map[string]any{"sessionId": "s1"})
	require.NoError(t, batchA.Flush(ctx))

	// Run B: its act was followed by an outcome, so nothing is pending.
	batchB := client.NewBatch()
	runB := batchB.Run("acme/api#2", "acme/api", "B")
	startedB := batchB.Outcome(runB, names.OutcomeStarted, nil)
	batchB.Act(startedB, "Implement", nil)
	require.NoError(t, batchB.Flush(ctx))

	followUp := client.NewBatch()
	followUp.Outcome(runB, names.OutcomeImplementationFailed, nil)
	require.NoError(t, followUp.Flush(ctx))

	// Run C: terminal.
	batchC := client.NewBatch()
	runC := batchC.Run("acme/api#3", "acme/api", "C")
	batchC.Outcome(runC, names.OutcomeReleased, nil)
	require.NoError(t, batchC.Flush(ctx))

	open, err := client.FindOpenIssueRuns(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)

	byIssue := make(map[string]*ledger.OpenRun, len(open))
	for _, run := range open {
		byIssue[run.IssueID] = run
	}

	a := byIssue["acme/api#1"]
	require.NotNil(t, a)
	require.Equal(t, runA, a.ID)
	require.Equal(t, names.OutcomeStarted, a.LatestOutcome)
	require.NotNil(t, a.PendingAct)
	require.Equal(t, actA, a.PendingAct.ID)
	require.Equal(t, "Implement", a.PendingAct.Name)
	require.Equal(t, "s1", a.PendingAct.Opts["sessionId"])
	require.Equal(t, map[string]string{"build": groupA}, a.Groups)

	b := byIssue["acme/api#2"]
	require.NotNil(t, b)
	require.Equal(t, names.OutcomeImplementationFailed, b.LatestOutcome)
	require.Nil(t, b.PendingAct)
}

func TestFindOpenIssueRunsIgnoresPipelineContainers(t *testing.T) {
	t.Parallel()

	server := ledgertest.New(t)
	client := server.Client()
	ctx := context.Background()

	batch := client.NewBatch()
	runID := batch.Run("acme/api#9", "acme/api", "pipeline telemetry")
	startedID := batch.Outcome(runID, names.OutcomeStarted, nil)
	actID := batch.Act(startedID, "Implement", nil)
	require.NoError(t, batch.Flush(ctx))

	// Telemetry: a pipeline run wrapping the act, with its outcome landing
	// after the act. Neither may advance the branch.
	telemetry := client.NewBatch()
	callID := telemetry.Call(runID, actID)
	telemetry.Outcome(callID, "Executed", map[string]any{"success": true})
	require.NoError(t, telemetry.Flush(ctx))

	open, err := client.FindOpenIssueRuns(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, names.OutcomeStarted, open[0].LatestOutcome)
	require.NotNil(t, open[0].PendingAct)
	require.Equal(t, actID, open[0].PendingAct.ID)
}

func TestFindActsByName(t *testing.T) {
	t.Parallel()

	server := ledgertest.New(t)
	client := server.Client()
	ctx := context.Background()

	batch := client.NewBatch()
	runID := batch.Run("acme/api#5", "acme/api", "x")
	outcomeID := batch.Outcome(runID, names.OutcomeStarted, nil)
	batch.Act(outcomeID, "Implement", nil)
	require.NoError(t, batch.Flush(ctx))

	acts, err := client.FindActsByName(ctx, "Implement")
	require.NoError(t, err)
	require.Len(t, acts, 1)

	acts, err = client.FindActsByName(ctx, "Review")
	require.NoError(t, err)
	require.Empty(t, acts)
}

func TestRegisterClassifications(t *testing.T) {
	t.Parallel()

	server := ledgertest.New(t)
	client := server.Client()

	require.NoError(t, client.RegisterClassifications(context.Background(), names.Classifications))
	stored := server.Classifications()
	require.Equal(t, names.ClassSuccess, stored[names.OutcomeMerged])
	require.Equal(t, names.ClassFailure, stored[names.OutcomeDeployFailed])
	require.Len(t, stored, len(names.Classifications))
}
