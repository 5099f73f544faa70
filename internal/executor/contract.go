// Package executor defines the typed-result contract every workflow step
// implements, the registry mapping executor names to implementations, and
// the adapter-injected context bundle. The scheduler treats each executor
// as an opaque function returning a tagged result; the graph decides what
// the result means.
package executor

import (
	"context"

	"github.com/warpmetrics/warp-coder/internal/board"
	"github.com/warpmetrics/warp-coder/internal/codehost"
	"github.com/warpmetrics/warp-coder/internal/coder"
	"github.com/warpmetrics/warp-coder/internal/config"
	"github.com/warpmetrics/warp-coder/internal/gitops"
	"github.com/warpmetrics/warp-coder/internal/hooks"
	"github.com/warpmetrics/warp-coder/internal/ledger"
	"github.com/warpmetrics/warp-coder/internal/logger"
	"github.com/warpmetrics/warp-coder/internal/memory"
	"github.com/warpmetrics/warp-coder/internal/names"
	"github.com/warpmetrics/warp-coder/internal/notify"
)

// Run is the issue-run state handed to an executor. Executors never
// mutate it; state advances only through the events the scheduler commits
// from the returned result.
type Run struct {
	ID            string
	IssueID       string
	Number        int
	Repo          string
	Title         string
	LatestOutcome string
	PendingAct    *ledger.PendingAct
	Groups        map[string]string
	BoardItem     *board.Item
}

// PRRef identifies a PR produced or consumed by a result.
type PRRef struct {
	Repo     string `json:"repo"`
	PRNumber int    `json:"prNumber"`
}

// Result is the tagged result of one executor invocation. Type must be
// one of the executor's declared result types; the scheduler enforces
// this before committing any events.
type Result struct {
	Type string

	CostUSD     *float64
	Trace       *coder.Trace
	OutcomeOpts map[string]any
	NextActOpts map[string]any

	// Result-specific fields.
	Error         string
	Question      string
	SessionID     string
	PRs           []PRRef
	BatchedIssues []string
}

// Waiting reports whether the result is the no-op waiting tag.
func (r *Result) Waiting() bool {
	return r != nil && r.Type == names.ResultWaiting
}

// Clients is the adapter bundle injected into executors. Side effects
// through these are at-least-once: executors re-invoked after a daemon
// crash must tolerate re-execution.
type Clients struct {
	Git    gitops.Client
	PRs    codehost.PRClient
	Issues codehost.IssuesClient
	Notify notify.Client
	Coder  coder.Client
	Ledger *ledger.Client
	Memory *memory.Store
	Hooks  *hooks.Runner
	Log    *logger.Logger
}

// Context bundles configuration, clients and per-invocation data.
type Context struct {
	Config  *config.Config
	Secrets *config.Secrets
	Clients *Clients

	// PipelineRunID is the telemetry container for this invocation.
	// Empty for waiting-capable executors until a non-waiting result
	// resolves.
	PipelineRunID string

	// ActOpts are the opts carried by the pending act.
	ActOpts map[string]any

	// Extra is the context-provider payload, keyed by provider.
	Extra map[string]any
}

// Executor is a named workflow step with declared result types.
type Executor interface {
	Name() string
	ResultTypes() []string
	Execute(ctx context.Context, run *Run, ec *Context) (*Result, error)
}

// WaitingCapable reports whether the executor declares the waiting result
// type. Waiting-capable executors run inline on the scheduler thread and
// must only observe remote state.
func WaitingCapable(e Executor) bool {
	for _, t := range e.ResultTypes() {
		if t == names.ResultWaiting {
			return true
		}
	}
	return false
}

// OptString reads a string field from an opts map.
func OptString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	if v, ok := opts[key].(string); ok {
		return v
	}
	return ""
}

// OptInt reads an integer field from an opts map, tolerating the float64
// that JSON round-trips produce.
func OptInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
