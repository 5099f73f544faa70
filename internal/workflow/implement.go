package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/warpmetrics/warp-coder/internal/coder"
	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/gitops"
	"github.com/warpmetrics/warp-coder/internal/hooks"
)

// implementExecutor drives a full coder session against the issue: clone
// or reuse the per-issue workdir, run the coder, then commit and push the
// bot branch. A `.warp-coder-ask` marker left by the coder turns into an
// ask_user result instead of a push.
type implementExecutor struct{}

func (implementExecutor) Name() string { return ExecImplement }

func (implementExecutor) ResultTypes() []string {
	return []string{"success", "ask_user", "max_turns", "error"}
}

func (implementExecutor) Execute(ctx context.Context, run *executor.Run, ec *executor.Context) (*executor.Result, error) {
	cl := ec.Clients
	repoURL := repoURLFor(ec.Config.Repos, run.Repo)
	workdir := gitops.RepoWorkdir(run.IssueID, repoURL, ec.Config.Repos)
	branch := BranchName(run.Number)

	fresh, err := ensureWorkdir(ctx, ec, workdir, repoURL)
	if err != nil {
		return errorResult("error", err.Error()), nil
	}

	if fresh {
		if err := cl.Git.CreateBranch(workdir, branch); err != nil {
			return errorResult("error", err.Error()), nil
		}
		if res := runHook(ctx, ec, hooks.OnBranchCreate, ec.Config.Hooks.OnBranchCreate, hookEnv(run, branch, 0)); res.Failed() {
			return hookFailure("error", res), nil
		}
	} else if current, cerr := cl.Git.CurrentBranch(workdir); cerr == nil && current != branch {
		if err := cl.Git.SwitchBranch(workdir, branch); err != nil {
			return errorResult("error", err.Error()), nil
		}
	}

	prompt := implementPrompt(ctx, run, ec)
	res, err := cl.Coder.Run(ctx, coder.Request{
		Prompt:          prompt,
		Workdir:         workdir,
		SessionID:       executor.OptString(ec.ActOpts, optSessionID),
		MaxTurns:        ec.Config.Claude.MaxTurns,
		AllowedTools:    ec.Config.Claude.AllowedTools,
		DisallowedTools: ec.Config.Claude.DisallowedTools,
	})
	if err != nil {
		return errorResult("error", err.Error()), nil
	}

	if res.MaxTurns() {
		return withTrace(&executor.Result{
			Type:      "max_turns",
			SessionID: res.SessionID,
			NextActOpts: map[string]any{
				optSessionID:  res.SessionID,
				optRetryCount: executor.OptInt(ec.ActOpts, optRetryCount) + 1,
			},
		}, res), nil
	}

	if question, ok := consumeAskMarker(workdir); ok {
		return withTrace(&executor.Result{
			Type:        "ask_user",
			Question:    question,
			SessionID:   res.SessionID,
			OutcomeOpts: map[string]any{optQuestion: question},
			NextActOpts: map[string]any{optSessionID: res.SessionID, optQuestion: question},
		}, res), nil
	}

	if hookRes := runHook(ctx, ec, hooks.OnBeforePush, ec.Config.Hooks.OnBeforePush, hookEnv(run, branch, 0)); hookRes.Failed() {
		return hookFailure("error", hookRes), nil
	}
	if _, err := cl.Git.CommitAll(workdir, commitMessage(run)); err != nil {
		return errorResult("error", err.Error()), nil
	}
	if err := cl.Git.Push(ctx, workdir); err != nil {
		return errorResult("error", err.Error()), nil
	}

	var prs []executor.PRRef
	pr, err := cl.PRs.FindOpenPR(ctx, run.Repo, run.IssueID)
	if err != nil {
		return errorResult("error", err.Error()), nil
	}
	if pr != nil {
		prs = append(prs, executor.PRRef{Repo: pr.Repo, PRNumber: pr.Number})
		if hookRes := runHook(ctx, ec, hooks.OnPRCreated, ec.Config.Hooks.OnPRCreated, hookEnv(run, branch, pr.Number)); hookRes.Failed() {
			return hookFailure("error", hookRes), nil
		}
	}

	return withTrace(&executor.Result{
		Type:      "success",
		SessionID: res.SessionID,
		PRs:       prs,
		OutcomeOpts: map[string]any{
			optPRs: prRefsToOpts(prs),
		},
		NextActOpts: map[string]any{
			optPRs:       prRefsToOpts(prs),
			optSessionID: res.SessionID,
		},
	}, res), nil
}

// ensureWorkdir clones the repo on first use and reports whether the
// checkout is fresh.
func ensureWorkdir(ctx context.Context, ec *executor.Context, workdir, repoURL string) (bool, error) {
	if _, err := os.Stat(workdir); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}

	cloneURL := gitops.TokenURL(repoURL, ec.Secrets.GitHubToken)
	if err := ec.Clients.Git.Clone(ctx, cloneURL, workdir, ""); err != nil {
		return false, err
	}
	return true, nil
}

// consumeAskMarker reads and removes the clarification marker file.
func consumeAskMarker(workdir string) (string, bool) {
	path := filepath.Join(workdir, gitops.AskMarkerFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	_ = os.Remove(path)
	question := strings.TrimSpace(string(data))
	if question == "" {
		question = "The coder requested clarification but left no question text."
	}
	return question, true
}

func implementPrompt(ctx context.Context, run *executor.Run, ec *executor.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Implement issue #%d: %s\n\n", run.Number, run.Title)

	if body, err := ec.Clients.Issues.GetIssueBody(ctx, run.Repo, run.Number); err == nil && body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	if reply := executor.OptString(ec.ActOpts, optReply); reply != "" {
		question := executor.OptString(ec.ActOpts, optQuestion)
		fmt.Fprintf(&b, "You previously asked:\n%s\n\nThe user replied:\n%s\n\n", question, reply)
	}

	if ec.Clients.Memory.Enabled() {
		if notes, err := ec.Clients.Memory.Read(); err == nil && notes != "" {
			fmt.Fprintf(&b, "Notes from previous work on this project:\n%s\n\n", notes)
		}
	}

	fmt.Fprintf(&b, "Work on the current branch. If you need clarification from the user, "+
		"write the question to %s and stop.\n", gitops.AskMarkerFile)
	return b.String()
}

func commitMessage(run *executor.Run) string {
	return fmt.Sprintf("%s (#%d)", run.Title, run.Number)
}

func hookEnv(run *executor.Run, branch string, prNumber int) hooks.Env {
	env := hooks.Env{
		IssueNumber: strconv.Itoa(run.Number),
		Branch:      branch,
		Repo:        run.Repo,
	}
	if prNumber > 0 {
		env.PRNumber = strconv.Itoa(prNumber)
	}
	return env
}

// runHook executes a lifecycle hook, logging invocation failures. A nil
// result (hook not configured or could not start) never fails the step.
func runHook(ctx context.Context, ec *executor.Context, name, cmdline string, env hooks.Env) *hooks.Result {
	res, err := ec.Clients.Hooks.Run(ctx, name, cmdline, env)
	if err != nil {
		ec.Clients.Log.Warn(fmt.Sprintf("hook %s failed to run: %v", name, err))
		return nil
	}
	return res
}

func hookFailure(resultType string, res *hooks.Result) *executor.Result {
	msg := fmt.Sprintf("hook %s exited with code %d", res.Name, res.ExitCode)
	result := errorResult(resultType, msg)
	result.OutcomeOpts["stdout"] = res.Stdout
	result.OutcomeOpts["stderr"] = res.Stderr
	return result
}

var _ executor.Executor = implementExecutor{}
