// Package board defines the project-tracking adapter contract. The board
// is authoritative for operator intent only: the scheduler reads its
// terminal columns (Aborted, Done, Blocked) and mirrors run state into the
// other columns fire-and-forget.
package board

import (
	"context"

	"github.com/warpmetrics/warp-coder/internal/names"
)

// Issue is a board issue eligible for intake.
type Issue struct {
	IssueID string
	Number  int
	Repo    string
	Title   string
}

// Item is one board card, attached to open runs for later column sync.
type Item struct {
	ID      string
	IssueID string
	Number  int
	Column  names.Column
	Title   string
}

// Adapter is the board contract consumed by the scheduler. Implementations
// should refresh their full item snapshot at most once per poll cycle.
type Adapter interface {
	// ScanNewIssues returns the issues currently in the initial column.
	ScanNewIssues(ctx context.Context) ([]Issue, error)

	// GetAllItems returns the full item snapshot.
	GetAllItems(ctx context.Context) ([]Item, error)

	// ScanAborted returns the issue ids in the aborted column, or nil if
	// the board has no such column.
	ScanAborted(ctx context.Context) (map[string]struct{}, error)

	// ScanDone returns the issue ids in the done column treated as
	// manual release, or nil if the board has no such column.
	ScanDone(ctx context.Context) (map[string]struct{}, error)

	// ScanBlocked returns the issue ids in the blocked column.
	ScanBlocked(ctx context.Context) (map[string]struct{}, error)

	// SyncState moves an item to the given symbolic column.
	SyncState(ctx context.Context, item Item, col names.Column) error
}
