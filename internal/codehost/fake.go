package codehost

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakePRClient is an in-memory PR client for tests and the debug stepper.
type FakePRClient struct {
	mu      sync.Mutex
	prs     map[string]*PR // keyed by repo#number
	byIssue map[string]*PR
	files   map[string][]PRFile
	commits map[string][]PRCommit

	// Reviews and Merged record mutations for assertions.
	Reviews []ReviewRequest
	Merged  []string

	// MergeErr, when set, is returned by MergePR.
	MergeErr error
}

// NewFakePRClient returns an empty fake PR client.
func NewFakePRClient() *FakePRClient {
	return &FakePRClient{
		prs:     make(map[string]*PR),
		byIssue: make(map[string]*PR),
		files:   make(map[string][]PRFile),
		commits: make(map[string][]PRCommit),
	}
}

// AddPR registers a PR discoverable by issue id.
func (f *FakePRClient) AddPR(issueID string, pr PR, files []PRFile, commits []PRCommit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := prKey(pr.Repo, pr.Number)
	stored := pr
	f.prs[key] = &stored
	f.byIssue[issueID] = &stored
	f.files[key] = files
	f.commits[key] = commits
}

// FindOpenPR implements PRClient.
func (f *FakePRClient) FindOpenPR(_ context.Context, _ string, issueID string) (*PR, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.byIssue[issueID]
	if !ok {
		return nil, nil
	}
	clone := *pr
	return &clone, nil
}

// SubmitReview implements PRClient.
func (f *FakePRClient) SubmitReview(_ context.Context, _ string, _ int, review ReviewRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reviews = append(f.Reviews, review)
	return nil
}

// MergePR implements PRClient.
func (f *FakePRClient) MergePR(_ context.Context, repo string, prNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MergeErr != nil {
		return f.MergeErr
	}
	key := prKey(repo, prNumber)
	if pr, ok := f.prs[key]; ok {
		pr.State = "merged"
	}
	f.Merged = append(f.Merged, key)
	return nil
}

// GetPRState implements PRClient.
func (f *FakePRClient) GetPRState(_ context.Context, repo string, prNumber int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.prs[prKey(repo, prNumber)]
	if !ok {
		return "", fmt.Errorf("pr %s#%d not found", repo, prNumber)
	}
	return pr.State, nil
}

// GetPRFiles implements PRClient.
func (f *FakePRClient) GetPRFiles(_ context.Context, repo string, prNumber int) ([]PRFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PRFile(nil), f.files[prKey(repo, prNumber)]...), nil
}

// GetPRCommits implements PRClient.
func (f *FakePRClient) GetPRCommits(_ context.Context, repo string, prNumber int) ([]PRCommit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PRCommit(nil), f.commits[prKey(repo, prNumber)]...), nil
}

// GetPRBranch implements PRClient.
func (f *FakePRClient) GetPRBranch(_ context.Context, repo string, prNumber int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.prs[prKey(repo, prNumber)]
	if !ok {
		return "", fmt.Errorf("pr %s#%d not found", repo, prNumber)
	}
	return pr.Branch, nil
}

// ClearCache implements PRClient. The fake has no cache.
func (f *FakePRClient) ClearCache() {}

func prKey(repo string, number int) string {
	return fmt.Sprintf("%s#%d", repo, number)
}

var _ PRClient = (*FakePRClient)(nil)

// FakeIssuesClient is an in-memory issues client.
type FakeIssuesClient struct {
	mu       sync.Mutex
	bodies   map[string]string
	comments map[string][]Comment
}

// NewFakeIssuesClient returns an empty fake issues client.
func NewFakeIssuesClient() *FakeIssuesClient {
	return &FakeIssuesClient{
		bodies:   make(map[string]string),
		comments: make(map[string][]Comment),
	}
}

// SetIssue stores an issue body.
func (f *FakeIssuesClient) SetIssue(repo string, number int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[prKey(repo, number)] = body
}

// AddComment appends a comment to an issue.
func (f *FakeIssuesClient) AddComment(repo string, number int, c Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := prKey(repo, number)
	f.comments[key] = append(f.comments[key], c)
}

// GetIssueBody implements IssuesClient.
func (f *FakeIssuesClient) GetIssueBody(_ context.Context, repo string, number int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[prKey(repo, number)], nil
}

// GetIssueComments implements IssuesClient.
func (f *FakeIssuesClient) GetIssueComments(_ context.Context, repo string, number int) ([]Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Comment(nil), f.comments[prKey(repo, number)]...), nil
}

// CreateComment implements IssuesClient.
func (f *FakeIssuesClient) CreateComment(_ context.Context, repo string, number int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := prKey(repo, number)
	f.comments[key] = append(f.comments[key], Comment{
		Author:    "warp-coder[bot]",
		Body:      body,
		CreatedAt: time.Now(),
	})
	return nil
}

var _ IssuesClient = (*FakeIssuesClient)(nil)
