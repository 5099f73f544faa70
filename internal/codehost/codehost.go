// Package codehost defines the code-host adapter contracts: PR discovery,
// review and merge, plus issue body/comment access. Implementations keep a
// per-poll cache; the scheduler clears it at the top of each cycle.
package codehost

import (
	"context"
	"time"
)

// PR identifies one pull request on a repo.
type PR struct {
	Repo     string
	Number   int
	Branch   string
	Title    string
	State    string
	HeadSHA  string
	BodyText string
}

// PRFile is one changed file in a PR.
type PRFile struct {
	Path      string
	Status    string
	Additions int
	Deletions int
	Patch     string
}

// PRCommit is one commit on a PR branch.
type PRCommit struct {
	SHA     string
	Message string
}

// ReviewEvent values accepted by SubmitReview.
const (
	ReviewApprove        = "APPROVE"
	ReviewRequestChanges = "REQUEST_CHANGES"
	ReviewComment        = "COMMENT"
)

// ReviewRequest is a review submission: the event, an overall body and
// optional inline comments.
type ReviewRequest struct {
	Event    string
	Body     string
	Comments []InlineComment
}

// InlineComment is one inline review comment.
type InlineComment struct {
	Path string
	Line int
	Body string
}

// PRClient is the pull-request surface consumed by executors.
type PRClient interface {
	// FindOpenPR locates the open PR for an issue by its branch pattern,
	// or returns nil when none exists.
	FindOpenPR(ctx context.Context, repo, issueID string) (*PR, error)

	SubmitReview(ctx context.Context, repo string, prNumber int, review ReviewRequest) error
	MergePR(ctx context.Context, repo string, prNumber int) error
	GetPRState(ctx context.Context, repo string, prNumber int) (string, error)
	GetPRFiles(ctx context.Context, repo string, prNumber int) ([]PRFile, error)
	GetPRCommits(ctx context.Context, repo string, prNumber int) ([]PRCommit, error)
	GetPRBranch(ctx context.Context, repo string, prNumber int) (string, error)

	// ClearCache drops the per-poll cache. Called once per cycle.
	ClearCache()
}

// Comment is one issue comment.
type Comment struct {
	Author    string
	Body      string
	CreatedAt time.Time
}

// IssuesClient is the issue surface consumed by executors.
type IssuesClient interface {
	GetIssueBody(ctx context.Context, repo string, number int) (string, error)
	GetIssueComments(ctx context.Context, repo string, number int) ([]Comment, error)
	CreateComment(ctx context.Context, repo string, number int, body string) error
}
