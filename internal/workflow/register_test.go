package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpmetrics/warp-coder/internal/config"
	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/graph"
	"github.com/warpmetrics/warp-coder/internal/names"
)

// The shipped workflow must compile cleanly against the builtin executors.
func TestShippedWorkflowCompiles(t *testing.T) {
	t.Parallel()

	reg := executor.NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))

	doc, err := LoadDocument(&config.Config{})
	require.NoError(t, err)

	g, warnings, err := graph.Compile(doc, reg.DeclaredResultTypes())
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, "Build", g.First().Name)
	require.True(t, g.First().PhaseGroup())
	require.Equal(t, names.ColumnDone, g.States[names.OutcomeReleased])
	require.Equal(t, names.ColumnBlocked, g.States[names.OutcomeReleaseFailed])

	publish, err := g.Lookup("Publish")
	require.NoError(t, err)
	board, ok := publish.BoardOutcome("success")
	require.True(t, ok)
	require.Equal(t, names.OutcomePublished, board)

	// Each blocked outcome resolves a retry back to the act that produced
	// it, so a build failure and a review failure must not share a name.
	analysis := graph.Analyze(g)
	require.Equal(t, "Implement", analysis.RetryTargets[names.OutcomeImplementationFailed].ActName)
	require.Equal(t, "Evaluate", analysis.RetryTargets[names.OutcomeReviewFailed].ActName)
	require.Equal(t, "Revise", analysis.RetryTargets[names.OutcomeMaxRetries].ActName)
}

func TestRegisterBuiltinsDuplicate(t *testing.T) {
	t.Parallel()

	reg := executor.NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))
	require.Error(t, RegisterBuiltins(reg))
}

func TestRegisterBuiltinsEffects(t *testing.T) {
	t.Parallel()

	reg := executor.NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))

	for _, key := range [][2]string{
		{ExecImplement, "ask_user"},
		{ExecImplement, "error"},
		{ExecRevise, "error"},
		{ExecMerge, "success"},
		{ExecRunDeploy, "success"},
	} {
		effect, ok := reg.EffectFor(key[0], key[1])
		require.True(t, ok, "effect %s:%s", key[0], key[1])
		require.NotNil(t, effect)
	}
	_, ok := reg.EffectFor(ExecReview, "approved")
	require.False(t, ok)

	provider, ok := reg.Provider(ExecRunDeploy)
	require.True(t, ok)
	require.NotNil(t, provider)
	_, ok = reg.Provider(ExecImplement)
	require.False(t, ok)
}
