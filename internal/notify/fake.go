package notify

import (
	"context"
	"sync"
)

// Fake records posted comments for assertions.
type Fake struct {
	mu sync.Mutex

	// Posted holds every comment in post order.
	Posted []PostedComment
}

// PostedComment is one recorded Comment call.
type PostedComment struct {
	IssueID string
	Message Message
}

// NewFake returns an empty fake notify client.
func NewFake() *Fake {
	return &Fake{}
}

// Comment implements Client.
func (f *Fake) Comment(_ context.Context, issueID string, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Posted = append(f.Posted, PostedComment{IssueID: issueID, Message: msg})
	return nil
}

// ForIssue returns the comments posted on one issue.
func (f *Fake) ForIssue(issueID string) []PostedComment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []PostedComment
	for _, p := range f.Posted {
		if p.IssueID == issueID {
			out = append(out, p)
		}
	}
	return out
}

var _ Client = (*Fake)(nil)
