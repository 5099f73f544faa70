package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpmetrics/warp-coder/internal/codehost"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	body := Format(Message{
		RunID: "run-1",
		Title: "Released",
		Body:  "Shipped the healthcheck.",
	})
	require.Equal(t, "### Released\n\n[run](https://app.warpmetrics.com/runs/run-1)\n\nShipped the healthcheck.", body)

	// Without title or run id only the body remains.
	require.Equal(t, "just text", Format(Message{Body: "just text"}))
}

func TestIssueCommenterPostsFormattedComment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	issues := codehost.NewFakeIssuesClient()
	commenter := NewIssueCommenter(issues)

	err := commenter.Comment(ctx, "acme/api#42", Message{
		RunID: "run-9",
		Title: "Run blocked",
		Body:  "build failed",
	})
	require.NoError(t, err)

	comments, err := issues.GetIssueComments(ctx, "acme/api", 42)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Contains(t, comments[0].Body, "### Run blocked")
	require.Contains(t, comments[0].Body, "run-9")
	require.Contains(t, comments[0].Body, "build failed")
}

func TestIssueCommenterRejectsMalformedIssueID(t *testing.T) {
	t.Parallel()

	commenter := NewIssueCommenter(codehost.NewFakeIssuesClient())
	require.Error(t, commenter.Comment(context.Background(), "acme/api", Message{Body: "x"}))
	require.Error(t, commenter.Comment(context.Background(), "acme/api#abc", Message{Body: "x"}))
	require.Error(t, commenter.Comment(context.Background(), "#42", Message{Body: "x"}))
}
