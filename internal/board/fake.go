package board

import (
	"context"
	"sync"

	"github.com/warpmetrics/warp-coder/internal/names"
)

// Fake is an in-memory board used by tests and by the debug stepper when
// no provider is configured. All state is mutable through exported
// methods; reads take a snapshot under the lock.
type Fake struct {
	mu      sync.Mutex
	issues  []Issue
	items   map[string]Item
	aborted map[string]struct{}
	done    map[string]struct{}
	blocked map[string]struct{}

	// Synced records every SyncState call for assertions.
	Synced []SyncCall
}

// SyncCall is one recorded SyncState invocation.
type SyncCall struct {
	IssueID string
	Column  names.Column
}

// NewFake returns an empty in-memory board.
func NewFake() *Fake {
	return &Fake{
		items:   make(map[string]Item),
		aborted: make(map[string]struct{}),
		done:    make(map[string]struct{}),
		blocked: make(map[string]struct{}),
	}
}

// AddIssue places an issue in the initial column and creates its item.
func (f *Fake) AddIssue(issue Issue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issues = append(f.issues, issue)
	f.items[issue.IssueID] = Item{
		ID:      "item-" + issue.IssueID,
		IssueID: issue.IssueID,
		Number:  issue.Number,
		Column:  names.ColumnTodo,
		Title:   issue.Title,
	}
}

// MarkAborted moves an issue into the aborted column.
func (f *Fake) MarkAborted(issueID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted[issueID] = struct{}{}
}

// MarkDone moves an issue into the done column.
func (f *Fake) MarkDone(issueID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done[issueID] = struct{}{}
}

// SetBlocked sets or clears an issue's presence in the blocked column.
func (f *Fake) SetBlocked(issueID string, blocked bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if blocked {
		f.blocked[issueID] = struct{}{}
	} else {
		delete(f.blocked, issueID)
	}
}

// SetColumn moves an issue's card to the given column directly.
func (f *Fake) SetColumn(issueID string, col names.Column) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[issueID]
	item.IssueID = issueID
	item.Column = col
	f.items[issueID] = item
}

// ScanNewIssues implements Adapter. Only issues whose card is still in the
// initial column are eligible for intake.
func (f *Fake) ScanNewIssues(_ context.Context) ([]Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Issue
	for _, issue := range f.issues {
		if item, ok := f.items[issue.IssueID]; ok && item.Column != names.ColumnTodo {
			continue
		}
		out = append(out, issue)
	}
	return out, nil
}

// GetAllItems implements Adapter.
func (f *Fake) GetAllItems(_ context.Context) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]Item, 0, len(f.items))
	for _, item := range f.items {
		items = append(items, item)
	}
	return items, nil
}

// ScanAborted implements Adapter.
func (f *Fake) ScanAborted(_ context.Context) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copySet(f.aborted), nil
}

// ScanDone implements Adapter.
func (f *Fake) ScanDone(_ context.Context) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copySet(f.done), nil
}

// ScanBlocked implements Adapter.
func (f *Fake) ScanBlocked(_ context.Context) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copySet(f.blocked), nil
}

// SyncState implements Adapter.
func (f *Fake) SyncState(_ context.Context, item Item, col names.Column) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.items[item.IssueID]
	stored.Column = col
	stored.IssueID = item.IssueID
	f.items[item.IssueID] = stored
	f.Synced = append(f.Synced, SyncCall{IssueID: item.IssueID, Column: col})
	return nil
}

// SyncedColumns returns the recorded sync calls for one issue.
func (f *Fake) SyncedColumns(issueID string) []names.Column {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cols []names.Column
	for _, call := range f.Synced {
		if call.IssueID == issueID {
			cols = append(cols, call.Column)
		}
	}
	return cols
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

var _ Adapter = (*Fake)(nil)
