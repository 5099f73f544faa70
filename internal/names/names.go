// Package names holds the stable enumerations shared by the workflow graph,
// the ledger and the scheduler: act names, outcome names, outcome
// classifications and symbolic board columns. These are data, not control
// flow; the shipped graph and any user-supplied graph refer to them by
// string.
package names

// Act names recognised by the shipped workflow graph.
const (
	ActBuild       = "Build"
	ActImplement   = "Implement"
	ActAwaitReply  = "AwaitReply"
	ActReview      = "Review"
	ActEvaluate    = "Evaluate"
	ActRevise      = "Revise"
	ActMerge       = "Merge"
	ActDeploy      = "Deploy"
	ActAwaitDeploy = "AwaitDeploy"
	ActRunDeploy   = "RunDeploy"
	ActRelease     = "Release"
	ActPublish     = "Publish"
)

// Outcome names. The ledger observes state exclusively through these.
const (
	// External-only outcomes: produced by the scheduler itself, never by a
	// graph edge.
	OutcomeStarted       = "Started"
	OutcomeResumed       = "Resumed"
	OutcomeRetried       = "Retried"
	OutcomeAborted       = "Aborted"
	OutcomeManualRelease = "ManualRelease"

	// Build phase.
	OutcomeBuilding             = "Building"
	OutcomePrCreated            = "PrCreated"
	OutcomeNeedsClarification   = "NeedsClarification"
	OutcomeClarified            = "Clarified"
	OutcomePaused               = "Paused"
	OutcomeImplementationFailed = "ImplementationFailed"
	OutcomeMaxRetries           = "MaxRetries"

	// Review phase.
	OutcomeReviewing        = "Reviewing"
	OutcomeApproved         = "Approved"
	OutcomeChangesRequested = "ChangesRequested"
	OutcomeFixesApplied     = "FixesApplied"
	OutcomeReviewFailed     = "ReviewFailed"
	OutcomeMerged           = "Merged"
	OutcomeMergeFailed      = "MergeFailed"

	// Deploy phase.
	OutcomeAwaitingDeploy = "AwaitingDeploy"
	OutcomeDeploying      = "Deploying"
	OutcomeDeployed       = "Deployed"
	OutcomeDeployFailed   = "DeployFailed"

	// Release phase. RELEASE_FAILED is spelled as the ledger records it.
	OutcomeReleasing     = "Releasing"
	OutcomeReleased      = "Released"
	OutcomeReleaseFailed = "RELEASE_FAILED"
	OutcomePublished     = "Published"
)

// Classification buckets registered with the ledger.
const (
	ClassSuccess = "success"
	ClassNeutral = "neutral"
	ClassFailure = "failure"
)

// Classifications maps every outcome name to its ledger classification.
// Registered idempotently at startup via Client.RegisterClassifications.
var Classifications = map[string]string{
	OutcomeStarted:       ClassNeutral,
	OutcomeResumed:       ClassNeutral,
	OutcomeRetried:       ClassNeutral,
	OutcomeAborted:       ClassNeutral,
	OutcomeManualRelease: ClassSuccess,

	OutcomeBuilding:             ClassNeutral,
	OutcomePrCreated:            ClassSuccess,
	OutcomeNeedsClarification:   ClassNeutral,
	OutcomeClarified:            ClassNeutral,
	OutcomePaused:               ClassNeutral,
	OutcomeImplementationFailed: ClassFailure,
	OutcomeMaxRetries:           ClassFailure,

	OutcomeReviewing:        ClassNeutral,
	OutcomeApproved:         ClassSuccess,
	OutcomeChangesRequested: ClassNeutral,
	OutcomeFixesApplied:     ClassSuccess,
	OutcomeReviewFailed:     ClassFailure,
	OutcomeMerged:           ClassSuccess,
	OutcomeMergeFailed:      ClassFailure,

	OutcomeAwaitingDeploy: ClassNeutral,
	OutcomeDeploying:      ClassNeutral,
	OutcomeDeployed:       ClassSuccess,
	OutcomeDeployFailed:   ClassFailure,

	OutcomeReleasing:     ClassNeutral,
	OutcomeReleased:      ClassSuccess,
	OutcomeReleaseFailed: ClassFailure,
	OutcomePublished:     ClassSuccess,
}

// Terminal outcomes close an issue run. A run whose latest outcome is one
// of these no longer appears in the open-runs query.
var TerminalOutcomes = map[string]struct{}{
	OutcomeAborted:       {},
	OutcomeManualRelease: {},
	OutcomeReleased:      {},
	OutcomePublished:     {},
}

// IsTerminal reports whether the outcome closes an issue run.
func IsTerminal(outcome string) bool {
	_, ok := TerminalOutcomes[outcome]
	return ok
}

// Column is a symbolic board column. The board adapter maps these onto the
// concrete project columns of whatever provider is configured.
type Column string

// Symbolic board columns.
const (
	ColumnTodo           Column = "todo"
	ColumnInProgress     Column = "inProgress"
	ColumnInReview       Column = "inReview"
	ColumnReadyForDeploy Column = "readyForDeploy"
	ColumnDeploy         Column = "deploy"
	ColumnBlocked        Column = "blocked"
	ColumnWaiting        Column = "waiting"
	ColumnDone           Column = "done"
)

// Columns lists every symbolic column, in board order.
var Columns = []Column{
	ColumnTodo,
	ColumnInProgress,
	ColumnInReview,
	ColumnReadyForDeploy,
	ColumnDeploy,
	ColumnBlocked,
	ColumnWaiting,
	ColumnDone,
}

// ValidColumn reports whether s names a symbolic column.
func ValidColumn(s string) bool {
	for _, c := range Columns {
		if string(c) == s {
			return true
		}
	}
	return false
}

// GroupNone is the executor sentinel marking a phase-group node.
const GroupNone = "none"

// ContainerIssue is the reserved edge container label targeting the issue
// run itself.
const ContainerIssue = "Issue"

// ResultCreated is the single result type a phase-group node carries.
const ResultCreated = "created"

// ResultWaiting marks a no-op executor result: no outcomes, no pipeline
// run, no board sync.
const ResultWaiting = "waiting"
