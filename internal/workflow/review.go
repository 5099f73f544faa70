package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warpmetrics/warp-coder/internal/codehost"
	"github.com/warpmetrics/warp-coder/internal/coder"
	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/gitops"
)

// reviewVerdict is the structured verdict the coder writes to the review
// marker file.
type reviewVerdict struct {
	Verdict  string `json:"verdict"`
	Body     string `json:"body"`
	Comments []struct {
		Path string `json:"path"`
		Line int    `json:"line"`
		Body string `json:"body"`
	} `json:"comments"`
}

const (
	verdictApprove        = "approve"
	verdictRequestChanges = "request_changes"
)

// reviewExecutor reads the PR diff, asks the coder for a one-shot verdict
// and submits the review on the code host.
type reviewExecutor struct{}

func (reviewExecutor) Name() string { return ExecReview }

func (reviewExecutor) ResultTypes() []string {
	return []string{"approved", "changes_requested", "error"}
}

func (reviewExecutor) Execute(ctx context.Context, run *executor.Run, ec *executor.Context) (*executor.Result, error) {
	cl := ec.Clients

	pr, err := resolvePR(ctx, run, ec)
	if err != nil {
		return errorResult("error", err.Error()), nil
	}

	files, err := cl.PRs.GetPRFiles(ctx, pr.Repo, pr.PRNumber)
	if err != nil {
		return errorResult("error", err.Error()), nil
	}
	commits, err := cl.PRs.GetPRCommits(ctx, pr.Repo, pr.PRNumber)
	if err != nil {
		return errorResult("error", err.Error()), nil
	}

	repoURL := repoURLFor(ec.Config.Repos, run.Repo)
	workdir := gitops.RepoWorkdir(run.IssueID, repoURL, ec.Config.Repos)

	res, err := cl.Coder.OneShot(ctx, coder.Request{
		Prompt:  reviewPrompt(run, files, commits),
		Workdir: workdir,
	})
	if err != nil {
		return errorResult("error", err.Error()), nil
	}

	verdict := readVerdict(workdir, res)
	if verdict.Verdict != verdictApprove && verdict.Verdict != verdictRequestChanges {
		return errorResult("error", fmt.Sprintf("unrecognised review verdict %q", verdict.Verdict)), nil
	}

	review := codehost.ReviewRequest{Body: verdict.Body}
	if verdict.Verdict == verdictApprove {
		review.Event = codehost.ReviewApprove
	} else {
		review.Event = codehost.ReviewRequestChanges
	}
	for _, c := range verdict.Comments {
		review.Comments = append(review.Comments, codehost.InlineComment{Path: c.Path, Line: c.Line, Body: c.Body})
	}

	if err := cl.PRs.SubmitReview(ctx, pr.Repo, pr.PRNumber, review); err != nil {
		return errorResult("error", err.Error()), nil
	}

	next := map[string]any{
		optPRs:           prRefsToOpts([]executor.PRRef{*pr}),
		optSessionID:     executor.OptString(ec.ActOpts, optSessionID),
		optRevisionCount: executor.OptInt(ec.ActOpts, optRevisionCount),
	}
	if verdict.Verdict == verdictApprove {
		return withTrace(&executor.Result{
			Type:        "approved",
			PRs:         []executor.PRRef{*pr},
			NextActOpts: next,
		}, res), nil
	}

	next[optFeedback] = verdict.Body
	return withTrace(&executor.Result{
		Type:        "changes_requested",
		PRs:         []executor.PRRef{*pr},
		OutcomeOpts: map[string]any{optFeedback: verdict.Body},
		NextActOpts: next,
	}, res), nil
}

// resolvePR returns the PR to operate on: from the act opts when the
// previous step recorded one, otherwise by branch-pattern discovery.
func resolvePR(ctx context.Context, run *executor.Run, ec *executor.Context) (*executor.PRRef, error) {
	if refs := prRefsFromOpts(ec.ActOpts); len(refs) > 0 {
		return &refs[0], nil
	}

	pr, err := ec.Clients.PRs.FindOpenPR(ctx, run.Repo, run.IssueID)
	if err != nil {
		return nil, err
	}
	if pr == nil {
		return nil, fmt.Errorf("no open PR for issue %s", run.IssueID)
	}
	return &executor.PRRef{Repo: pr.Repo, PRNumber: pr.Number}, nil
}

// readVerdict prefers the structured marker file; when the coder produced
// none, the first word of the result text decides.
func readVerdict(workdir string, res *coder.Result) reviewVerdict {
	path := filepath.Join(workdir, gitops.ReviewMarkerFile)
	if data, err := os.ReadFile(path); err == nil {
		_ = os.Remove(path)
		var v reviewVerdict
		if err := json.Unmarshal(data, &v); err == nil {
			return v
		}
	}

	text := strings.TrimSpace(res.Text)
	upper := strings.ToUpper(text)
	switch {
	case strings.HasPrefix(upper, "APPROVE"):
		return reviewVerdict{Verdict: verdictApprove, Body: text}
	case strings.HasPrefix(upper, "REQUEST_CHANGES"):
		return reviewVerdict{Verdict: verdictRequestChanges, Body: text}
	}
	return reviewVerdict{Verdict: "", Body: text}
}

func reviewPrompt(run *executor.Run, files []codehost.PRFile, commits []codehost.PRCommit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review the changes for issue #%d: %s\n\n", run.Number, run.Title)

	b.WriteString("Commits:\n")
	for _, c := range commits {
		fmt.Fprintf(&b, "- %s %s\n", shortSHA(c.SHA), firstLine(c.Message))
	}

	b.WriteString("\nChanged files:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "- %s (%s, +%d -%d)\n", f.Path, f.Status, f.Additions, f.Deletions)
		if f.Patch != "" {
			fmt.Fprintf(&b, "```\n%s\n```\n", f.Patch)
		}
	}

	fmt.Fprintf(&b, "\nWrite your verdict as JSON to %s: "+
		`{"verdict": "approve"|"request_changes", "body": "...", "comments": [{"path", "line", "body"}]}`+"\n",
		gitops.ReviewMarkerFile)
	return b.String()
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

var _ executor.Executor = reviewExecutor{}
