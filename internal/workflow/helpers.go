package workflow

import (
	"fmt"
	"strings"

	"github.com/warpmetrics/warp-coder/internal/coder"
	"github.com/warpmetrics/warp-coder/internal/executor"
)

// Act/result option keys shared between executors and graph edges.
const (
	optSessionID     = "sessionId"
	optRetryCount    = "retryCount"
	optRevisionCount = "revisionCount"
	optPRs           = "prs"
	optQuestion      = "question"
	optReply         = "reply"
	optFeedback      = "feedback"
	optChangelog     = "changelog"
	optBatch         = "batch"
)

// Executor names bound by the shipped graph.
const (
	ExecImplement   = "implement"
	ExecAwaitReply  = "await_reply"
	ExecReview      = "review"
	ExecRevise      = "revise"
	ExecMerge       = "merge"
	ExecAwaitDeploy = "await_deploy"
	ExecRunDeploy   = "run_deploy"
	ExecPublish     = "publish"
)

// BranchName returns the bot branch for an issue.
func BranchName(issueNumber int) string {
	return fmt.Sprintf("warp-coder/issue-%d", issueNumber)
}

// repoURLFor resolves a short "owner/name" repo reference to its configured
// clone URL. Falls back to the primary repo when nothing matches.
func repoURLFor(repos []string, repo string) string {
	for _, u := range repos {
		trimmed := strings.TrimSuffix(strings.TrimSuffix(u, "/"), ".git")
		if strings.HasSuffix(trimmed, "/"+repo) || trimmed == repo {
			return u
		}
	}
	if len(repos) > 0 {
		return repos[0]
	}
	return repo
}

// prRefsFromOpts decodes the prs entry of an opts map. Opts round-trip
// through JSON, so the slice elements arrive as map[string]any.
func prRefsFromOpts(opts map[string]any) []executor.PRRef {
	raw, ok := opts[optPRs].([]any)
	if !ok {
		return nil
	}

	var refs []executor.PRRef
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		ref := executor.PRRef{
			Repo:     executor.OptString(m, "repo"),
			PRNumber: executor.OptInt(m, "prNumber"),
		}
		if ref.Repo != "" && ref.PRNumber > 0 {
			refs = append(refs, ref)
		}
	}
	return refs
}

// prRefsToOpts renders PR refs back into the opts shape.
func prRefsToOpts(refs []executor.PRRef) []any {
	out := make([]any, 0, len(refs))
	for _, ref := range refs {
		out = append(out, map[string]any{"repo": ref.Repo, "prNumber": ref.PRNumber})
	}
	return out
}

// errorResult builds a typed error result.
func errorResult(resultType, msg string) *executor.Result {
	return &executor.Result{
		Type:        resultType,
		Error:       msg,
		OutcomeOpts: map[string]any{"error": msg},
	}
}

// withTrace attaches the coder envelope's cost and trace to a result.
func withTrace(result *executor.Result, res *coder.Result) *executor.Result {
	if res == nil {
		return result
	}
	cost := res.CostUSD
	result.CostUSD = &cost
	result.Trace = res.Trace
	return result
}
