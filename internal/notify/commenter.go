package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/warpmetrics/warp-coder/internal/codehost"
)

// IssueCommenter posts formatted messages as issue comments through a
// code-host issues client.
type IssueCommenter struct {
	issues codehost.IssuesClient
}

// NewIssueCommenter returns a Client backed by the given issues client.
func NewIssueCommenter(issues codehost.IssuesClient) *IssueCommenter {
	return &IssueCommenter{issues: issues}
}

// Comment implements Client. The issue id carries the target repo and
// number, as in "acme/api#42".
func (c *IssueCommenter) Comment(ctx context.Context, issueID string, msg Message) error {
	repo, number, err := splitIssueID(issueID)
	if err != nil {
		return err
	}
	return c.issues.CreateComment(ctx, repo, number, Format(msg))
}

func splitIssueID(issueID string) (string, int, error) {
	i := strings.LastIndex(issueID, "#")
	if i <= 0 {
		return "", 0, fmt.Errorf("issue id %q carries no repo and number", issueID)
	}
	number, err := strconv.Atoi(issueID[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("issue id %q carries no number: %w", issueID, err)
	}
	return issueID[:i], number, nil
}

var _ Client = (*IssueCommenter)(nil)
