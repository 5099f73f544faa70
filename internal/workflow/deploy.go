package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/warpmetrics/warp-coder/internal/deploy"
	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/names"
)

// DeployStepTimeout bounds each configured deploy step.
const DeployStepTimeout = 10 * time.Minute

// Extra-context keys published by the deploy provider.
const (
	extraDeployBatch = "deployBatch"
	extraSiblings    = "siblings"
)

// SiblingRun identifies another open run batched into this deploy.
type SiblingRun struct {
	RunID   string
	IssueID string
	GroupID string
}

// deployProvider computes the deploy batch before run_deploy executes:
// every open run in the deploy phase whose repo set transitively overlaps
// the trigger's. Registered as the run_deploy context provider.
func deployProvider(ctx context.Context, run *executor.Run, ec *executor.Context) (map[string]any, error) {
	trigger := deploy.Candidate{IssueID: run.IssueID, Repos: []string{run.Repo}}

	open, err := ec.Clients.Ledger.FindOpenIssueRuns(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []deploy.Candidate
	byIssue := make(map[string]SiblingRun)
	for _, other := range open {
		if other.IssueID == run.IssueID {
			continue
		}
		if !inDeployPhase(other.LatestOutcome) {
			continue
		}
		candidates = append(candidates, deploy.Candidate{IssueID: other.IssueID, Repos: []string{other.Repo}})
		byIssue[other.IssueID] = SiblingRun{
			RunID:   other.ID,
			IssueID: other.IssueID,
			GroupID: other.Groups["deploy"],
		}
	}

	batch := deploy.ComputeDeployBatch(trigger, candidates)

	var siblings []SiblingRun
	for _, candidate := range batch {
		if sibling, ok := byIssue[candidate.IssueID]; ok {
			siblings = append(siblings, sibling)
		}
	}

	return map[string]any{
		extraDeployBatch: batch,
		extraSiblings:    siblings,
	}, nil
}

// inDeployPhase reports whether a run's latest outcome leaves it waiting
// on the same deploy trigger as the batch.
func inDeployPhase(outcome string) bool {
	return outcome == names.OutcomeAwaitingDeploy || outcome == names.OutcomeDeploying
}

// runDeployExecutor runs the configured deploy steps over the batch. All
// steps must exit zero; the first failure aborts with its output.
type runDeployExecutor struct{}

func (runDeployExecutor) Name() string { return ExecRunDeploy }

func (runDeployExecutor) ResultTypes() []string {
	return []string{"success", "error"}
}

func (runDeployExecutor) Execute(ctx context.Context, run *executor.Run, ec *executor.Context) (*executor.Result, error) {
	batch, _ := ec.Extra[extraDeployBatch].([]deploy.Candidate)

	issues := make([]string, 0, len(batch)+1)
	for _, candidate := range batch {
		issues = append(issues, candidate.IssueID)
	}
	if len(issues) == 0 {
		issues = append(issues, run.IssueID)
	}

	env := hookEnv(run, BranchName(run.Number), 0)
	for i, step := range ec.Config.Deploy.Steps {
		name := fmt.Sprintf("deploy[%d]", i)
		res, err := ec.Clients.Hooks.RunWithTimeout(ctx, name, step, env, DeployStepTimeout)
		if err != nil {
			return errorResult("error", err.Error()), nil
		}
		if res.Failed() {
			return hookFailure("error", res), nil
		}
	}

	return &executor.Result{
		Type:          "success",
		BatchedIssues: issues,
		OutcomeOpts:   map[string]any{optBatch: issues},
		NextActOpts:   map[string]any{optBatch: issues},
	}, nil
}

var _ executor.Executor = runDeployExecutor{}
