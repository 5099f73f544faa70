package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/warpmetrics/warp-coder/internal/coder"
	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/notify"
)

// publishExecutor finalizes a release: generates the changelog with a
// one-shot coder call, posts the release notes on the issue and appends a
// reflection line to project memory. The Release act is a phase group, so
// this is the single work act of the release phase.
type publishExecutor struct{}

func (publishExecutor) Name() string { return ExecPublish }

func (publishExecutor) ResultTypes() []string {
	return []string{"success", "release_failed"}
}

func (publishExecutor) Execute(ctx context.Context, run *executor.Run, ec *executor.Context) (*executor.Result, error) {
	cl := ec.Clients

	changelog, trace := buildChangelog(ctx, run, ec)

	notes := releaseNotes(run, changelog)
	if err := cl.Notify.Comment(ctx, run.IssueID, notify.Message{
		Repo:  run.Repo,
		RunID: run.ID,
		Title: "Released",
		Body:  notes,
	}); err != nil {
		return errorResult("release_failed", err.Error()), nil
	}

	if cl.Memory.Enabled() {
		line := fmt.Sprintf("- %s released #%d: %s", time.Now().Format("2006-01-02"), run.Number, run.Title)
		if err := cl.Memory.Append(line); err != nil {
			cl.Log.Warn(fmt.Sprintf("memory append failed: %v", err))
		}
	}

	result := &executor.Result{
		Type:        "success",
		OutcomeOpts: map[string]any{optChangelog: changelog},
	}
	result.Trace = trace
	return result, nil
}

// buildChangelog asks the coder for a short changelog entry. Failures
// degrade to the issue title; the release never blocks on prose.
func buildChangelog(ctx context.Context, run *executor.Run, ec *executor.Context) (string, *coder.Trace) {
	prompt := fmt.Sprintf(
		"Write a one-paragraph changelog entry for this completed change. "+
			"Issue #%d: %s. Respond with the entry only.", run.Number, run.Title)

	res, err := ec.Clients.Coder.OneShot(ctx, coder.Request{Prompt: prompt})
	if err != nil || strings.TrimSpace(res.Text) == "" {
		return run.Title, nil
	}
	return strings.TrimSpace(res.Text), res.Trace
}

func releaseNotes(run *executor.Run, changelog string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Issue #%d has been released.\n\n", run.Number)
	b.WriteString(changelog)
	return b.String()
}

var _ executor.Executor = publishExecutor{}
