package names

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassificationsCoverEveryOutcome(t *testing.T) {
	t.Parallel()

	outcomes := []string{
		OutcomeStarted, OutcomeResumed, OutcomeRetried, OutcomeAborted, OutcomeManualRelease,
		OutcomeBuilding, OutcomePrCreated, OutcomeNeedsClarification, OutcomeClarified,
		OutcomePaused, OutcomeImplementationFailed, OutcomeMaxRetries,
		OutcomeReviewing, OutcomeApproved, OutcomeChangesRequested, OutcomeFixesApplied,
		OutcomeReviewFailed, OutcomeMerged, OutcomeMergeFailed,
		OutcomeAwaitingDeploy, OutcomeDeploying, OutcomeDeployed, OutcomeDeployFailed,
		OutcomeReleasing, OutcomeReleased, OutcomeReleaseFailed, OutcomePublished,
	}

	for _, outcome := range outcomes {
		class, ok := Classifications[outcome]
		require.True(t, ok, "outcome %s has no classification", outcome)
		require.Contains(t, []string{ClassSuccess, ClassNeutral, ClassFailure}, class)
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	require.True(t, IsTerminal(OutcomeAborted))
	require.True(t, IsTerminal(OutcomeManualRelease))
	require.True(t, IsTerminal(OutcomeReleased))
	require.True(t, IsTerminal(OutcomePublished))

	require.False(t, IsTerminal(OutcomeStarted))
	require.False(t, IsTerminal(OutcomeMerged))
	require.False(t, IsTerminal(OutcomeReleaseFailed))
	require.False(t, IsTerminal(""))
}

func TestValidColumn(t *testing.T) {
	t.Parallel()

	for _, col := range Columns {
		require.True(t, ValidColumn(string(col)))
	}
	require.False(t, ValidColumn("shipping"))
	require.False(t, ValidColumn(""))
}
