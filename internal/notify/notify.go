// Package notify defines the comment/notification contract used by
// effects. Effects are best-effort side channels; notify failures are
// logged and never block a run.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Message is a formatted comment to post on an issue.
type Message struct {
	Repo  string
	RunID string
	Title string
	Body  string
}

// Client posts comments on issues.
type Client interface {
	Comment(ctx context.Context, issueID string, msg Message) error
}

// runURLBase is the auxiliary run-link header target.
const runURLBase = "https://app.warpmetrics.com/runs/"

// Format renders the comment body with the optional title and run-URL
// header.
func Format(msg Message) string {
	var b strings.Builder
	if msg.Title != "" {
		fmt.Fprintf(&b, "### %s\n\n", msg.Title)
	}
	if msg.RunID != "" {
		fmt.Fprintf(&b, "[run](%s%s)\n\n", runURLBase, msg.RunID)
	}
	b.WriteString(msg.Body)
	return b.String()
}
