package ledger

import (
	"context"
	"sync/atomic"
	"time"
)

// Batch accumulates events that reference each other and commits them with
// a single POST. IDs are generated client-side at queue time so callers
// can wire outcomes to acts before anything hits the wire. A batch is not
// safe for concurrent use; each processRun invocation owns its own.
type Batch struct {
	client *Client
	set    eventSet
}

// Run queues a new issue-run record and returns its id.
func (b *Batch) Run(issueID, repo, title string) string {
	id := NewRunID()
	b.set.Runs = append(b.set.Runs, Run{
		ID:      id,
		Label:   LabelIssue,
		IssueID: issueID,
		Repo:    repo,
		Title:   title,
		Ts:      now(),
	})
	return id
}

// Group queues a phase-group record linked to its parent issue run and
// returns the group id.
func (b *Batch) Group(parentRunID, label string) string {
	id := NewGroupID()
	ts := now()
	b.set.Groups = append(b.set.Groups, Group{ID: id, Label: label, Ts: ts})
	b.set.Links = append(b.set.Links, Link{ChildID: id, ParentID: parentRunID, Ts: ts})
	return id
}

// Call queues a pipeline-run record referencing the act it wraps, linked
// to the parent issue run, and returns the call id.
func (b *Batch) Call(parentRunID, refActID string) string {
	id := NewCallID()
	ts := now()
	b.set.Calls = append(b.set.Calls, Call{ID: id, RefActID: refActID, Ts: ts})
	b.set.Links = append(b.set.Links, Link{ChildID: id, ParentID: parentRunID, Ts: ts})
	return id
}

// Outcome queues an outcome on the given container and returns the
// outcome id.
func (b *Batch) Outcome(containerID, name string, opts map[string]any) string {
	id := NewOutcomeID()
	b.set.Outcomes = append(b.set.Outcomes, Outcome{
		ID:          id,
		ContainerID: containerID,
		Name:        name,
		Opts:        opts,
		Ts:          now(),
	})
	return id
}

// Act queues an act emitted from the given outcome and returns the act id.
func (b *Batch) Act(outcomeID, name string, opts map[string]any) string {
	id := NewActID()
	b.set.Acts = append(b.set.Acts, Act{
		ID:        id,
		OutcomeID: outcomeID,
		Name:      name,
		Opts:      opts,
		Ts:        now(),
	})
	return id
}

// Empty reports whether nothing has been queued.
func (b *Batch) Empty() bool {
	return b.set.empty()
}

// Flush commits the accumulated batch in one POST. On error nothing was
// accepted; the caller's state is unchanged and the next poll retries.
func (b *Batch) Flush(ctx context.Context) error {
	if b.Empty() {
		return nil
	}
	err := b.client.postEvents(ctx, &b.set)
	if err == nil {
		b.set = eventSet{}
	}
	return err
}

var lastTs atomic.Int64

// now returns strictly increasing millisecond timestamps. Branch
// resolution orders events by Ts, so two events appended back to back must
// never tie.
func now() int64 {
	for {
		prev := lastTs.Load()
		ts := time.Now().UnixMilli()
		if ts <= prev {
			ts = prev + 1
		}
		if lastTs.CompareAndSwap(prev, ts) {
			return ts
		}
	}
}
