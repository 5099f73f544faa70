// Package gitops wraps go-git for the executors: clone into per-issue
// workdirs, branch management, commit-all and push. Commits are authored
// under the bot identity; HTTPS GitHub URLs are rewritten to embed the
// bearer token so pushes authenticate without credential helpers.
package gitops

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Bot identity used for commits.
const (
	BotName  = "warpmetrics[bot]"
	BotEmail = "bot@warpmetrics.com"
)

// Client is the git surface consumed by executors.
type Client interface {
	// Clone clones url into dir, optionally checking out branch.
	Clone(ctx context.Context, url, dir, branch string) error

	// CreateBranch creates and checks out a new branch in dir.
	CreateBranch(dir, name string) error

	// SwitchBranch checks out an existing branch in dir.
	SwitchBranch(dir, name string) error

	// CurrentBranch returns the checked-out branch name in dir.
	CurrentBranch(dir string) (string, error)

	// Status reports whether the worktree has uncommitted changes.
	Status(dir string) (clean bool, err error)

	// CommitAll stages everything and commits under the bot identity.
	// Returns the commit hash, or "" when the worktree was clean.
	CommitAll(dir, message string) (string, error)

	// Push force-pushes the current branch, refusing to clobber remote
	// work pushed since our last fetch.
	Push(ctx context.Context, dir string) error
}

// TokenURL embeds a bearer token into an HTTPS GitHub URL so pushes
// authenticate as the bot. Non-HTTPS and non-GitHub URLs pass through
// unchanged.
func TokenURL(repoURL, token string) string {
	if token == "" {
		return repoURL
	}
	parsed, err := url.Parse(repoURL)
	if err != nil || parsed.Scheme != "https" || !strings.HasSuffix(parsed.Host, "github.com") {
		return repoURL
	}
	parsed.User = url.UserPassword("x-access-token", token)
	return parsed.String()
}

// gogitClient implements Client on go-git.
type gogitClient struct {
	token string
}

// New returns a Client authenticating with the given token.
func New(token string) Client {
	return &gogitClient{token: token}
}

func (c *gogitClient) auth() *githttp.BasicAuth {
	if c.token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: c.token}
}

func (c *gogitClient) Clone(ctx context.Context, repoURL, dir, branch string) error {
	opts := &git.CloneOptions{
		URL:  repoURL,
		Auth: c.auth(),
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return fmt.Errorf("clone %s: %w", repoURL, err)
	}
	return nil
}

func (c *gogitClient) CreateBranch(dir, name string) error {
	repo, worktree, err := open(dir)
	if err != nil {
		return err
	}

	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(name)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(ref, head.Hash())); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}

	if err := worktree.Checkout(&git.CheckoutOptions{Branch: ref}); err != nil {
		return fmt.Errorf("checkout %s: %w", name, err)
	}
	return nil
}

func (c *gogitClient) SwitchBranch(dir, name string) error {
	_, worktree, err := open(dir)
	if err != nil {
		return err
	}

	ref := plumbing.NewBranchReferenceName(name)
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: ref}); err != nil {
		return fmt.Errorf("checkout %s: %w", name, err)
	}
	return nil
}

func (c *gogitClient) CurrentBranch(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("detached HEAD at %s", head.Hash())
	}
	return head.Name().Short(), nil
}

func (c *gogitClient) Status(dir string) (bool, error) {
	_, worktree, err := open(dir)
	if err != nil {
		return false, err
	}

	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("status: %w", err)
	}
	return status.IsClean(), nil
}

func (c *gogitClient) CommitAll(dir, message string) (string, error) {
	_, worktree, err := open(dir)
	if err != nil {
		return "", err
	}

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("status: %w", err)
	}
	if status.IsClean() {
		return "", nil
	}

	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("add: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  BotName,
			Email: BotEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

func (c *gogitClient) Push(ctx context.Context, dir string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("open %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	branch := head.Name().Short()
	refspec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/heads/%s", branch, branch))

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refspec},
		Auth:       c.auth(),
		// Force-with-lease semantics: only overwrite the remote branch
		// when it still points where our local remote-tracking ref says.
		RequireRemoteRefs: leaseRefs(repo, branch),
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("push %s: %w", branch, err)
	}
	return nil
}

// leaseRefs builds the RequireRemoteRefs set from the remote-tracking ref,
// when one exists. A missing tracking ref (first push) yields no
// requirement.
func leaseRefs(repo *git.Repository, branch string) []gitconfig.RefSpec {
	remoteRef := plumbing.NewRemoteReferenceName("origin", branch)
	ref, err := repo.Reference(remoteRef, true)
	if err != nil {
		return nil
	}
	spec := gitconfig.RefSpec(fmt.Sprintf("%s:refs/heads/%s", ref.Hash(), branch))
	return []gitconfig.RefSpec{spec}
}

func open(dir string) (*git.Repository, *git.Worktree, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", dir, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, nil, fmt.Errorf("worktree: %w", err)
	}
	return repo, worktree, nil
}
