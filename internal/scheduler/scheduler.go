// Package scheduler owns the poll loop and the per-run advancement logic.
// All durable state lives in the ledger; the scheduler is a projection
// loop that reads open runs, drives their pending acts through the graph
// and appends the resulting events in atomic batches.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/warpmetrics/warp-coder/internal/board"
	"github.com/warpmetrics/warp-coder/internal/config"
	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/graph"
	"github.com/warpmetrics/warp-coder/internal/ledger"
	"github.com/warpmetrics/warp-coder/internal/logger"
	"github.com/warpmetrics/warp-coder/internal/names"
)

// boardSyncTimeout bounds each fire-and-forget column sync.
const boardSyncTimeout = 15 * time.Second

// Options wires a Scheduler.
type Options struct {
	Config   *config.Config
	Secrets  *config.Secrets
	Graph    *graph.Graph
	Registry *executor.Registry
	Clients  *executor.Clients
	Board    board.Adapter
	Log      *logger.Logger
}

// Scheduler drives open issue runs through the workflow graph.
type Scheduler struct {
	cfg      *config.Config
	secrets  *config.Secrets
	graph    *graph.Graph
	analysis *graph.Analysis
	registry *executor.Registry
	clients  *executor.Clients
	board    board.Adapter
	log      *logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// New builds a Scheduler and computes the graph derivations once.
func New(opts Options) *Scheduler {
	return &Scheduler{
		cfg:      opts.Config,
		secrets:  opts.Secrets,
		graph:    opts.Graph,
		analysis: graph.Analyze(opts.Graph),
		registry: opts.Registry,
		clients:  opts.Clients,
		board:    opts.Board,
		log:      opts.Log,
		inFlight: make(map[string]struct{}),
	}
}

// Run polls until ctx is cancelled, then waits for in-flight work. In-flight
// executors are not cancelled; they must finish their current subprocess or
// HTTP call.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.clients.Ledger.RegisterClassifications(ctx, names.Classifications); err != nil {
		s.log.Warn(fmt.Sprintf("register classifications: %v", err))
	}

	interval := time.Duration(s.cfg.PollIntervalOrDefault()) * time.Second
	for {
		s.Poll(ctx)

		select {
		case <-ctx.Done():
			s.WaitForInFlight()
			return nil
		case <-time.After(interval):
		}
	}
}

// Poll runs one full cycle: load, intake, attach, terminal scans, retry,
// partition and dispatch.
func (s *Scheduler) Poll(ctx context.Context) {
	s.clients.PRs.ClearCache()

	open, err := s.clients.Ledger.FindOpenIssueRuns(ctx)
	if err != nil {
		s.log.Error(err, "load open runs")
		return
	}

	runs := make([]*executor.Run, 0, len(open))
	known := make(map[string]struct{}, len(open))
	for _, o := range open {
		runs = append(runs, toRun(o))
		known[o.IssueID] = struct{}{}
	}

	runs = append(runs, s.intake(ctx, known)...)
	s.attachBoardItems(ctx, runs)
	runs = s.scanTerminalColumns(ctx, runs)
	s.retryFromBlocked(ctx, runs)
	s.dispatch(ctx, runs)
}

// OpenRuns loads the current open runs with board items attached, without
// advancing anything. Used by the debug stepper.
func (s *Scheduler) OpenRuns(ctx context.Context) ([]*executor.Run, error) {
	open, err := s.clients.Ledger.FindOpenIssueRuns(ctx)
	if err != nil {
		return nil, err
	}
	runs := make([]*executor.Run, 0, len(open))
	for _, o := range open {
		runs = append(runs, toRun(o))
	}
	s.attachBoardItems(ctx, runs)
	return runs, nil
}

// StepRun advances one run through a single processRun pass.
func (s *Scheduler) StepRun(ctx context.Context, run *executor.Run) {
	s.processRun(ctx, run)
}

// WaitForInFlight blocks until every in-flight task and board sync is done.
func (s *Scheduler) WaitForInFlight() {
	s.wg.Wait()
}

// InFlight reports the number of issues currently being worked.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

func toRun(o *ledger.OpenRun) *executor.Run {
	groups := o.Groups
	if groups == nil {
		groups = make(map[string]string)
	}
	return &executor.Run{
		ID:            o.ID,
		IssueID:       o.IssueID,
		Number:        parseIssueNumber(o.IssueID),
		Repo:          o.Repo,
		Title:         o.Title,
		LatestOutcome: o.LatestOutcome,
		PendingAct:    o.PendingAct,
		Groups:        groups,
	}
}

// intake creates an issue run for every board issue in the initial column
// not yet known to the ledger: one atomic batch of run + Started outcome +
// initial act.
func (s *Scheduler) intake(ctx context.Context, known map[string]struct{}) []*executor.Run {
	first := s.graph.First()
	if first == nil {
		return nil
	}

	issues, err := s.board.ScanNewIssues(ctx)
	if err != nil {
		s.log.Error(err, "scan new issues")
		return nil
	}

	var created []*executor.Run
	for _, issue := range issues {
		if _, ok := known[issue.IssueID]; ok {
			continue
		}

		batch := s.clients.Ledger.NewBatch()
		runID := batch.Run(issue.IssueID, issue.Repo, issue.Title)
		outcomeID := batch.Outcome(runID, names.OutcomeStarted, nil)
		actID := batch.Act(outcomeID, first.Name, nil)
		if err := batch.Flush(ctx); err != nil {
			s.log.Error(err, "intake commit")
			continue
		}

		s.log.Info(fmt.Sprintf("intake %s: %s", issue.IssueID, issue.Title))
		created = append(created, &executor.Run{
			ID:            runID,
			IssueID:       issue.IssueID,
			Number:        issue.Number,
			Repo:          issue.Repo,
			Title:         issue.Title,
			LatestOutcome: names.OutcomeStarted,
			PendingAct:    &ledger.PendingAct{ID: actID, Name: first.Name},
			Groups:        make(map[string]string),
		})
	}
	return created
}

// attachBoardItems indexes the board snapshot once and attaches cards to
// their open runs for later column sync.
func (s *Scheduler) attachBoardItems(ctx context.Context, runs []*executor.Run) {
	items, err := s.board.GetAllItems(ctx)
	if err != nil {
		s.log.Warn(fmt.Sprintf("board snapshot: %v", err))
		return
	}

	byIssue := make(map[string]board.Item, len(items))
	for _, item := range items {
		byIssue[item.IssueID] = item
	}
	for _, run := range runs {
		if item, ok := byIssue[run.IssueID]; ok {
			attached := item
			run.BoardItem = &attached
			if run.Number == 0 {
				run.Number = item.Number
			}
		}
	}
}

// scanTerminalColumns closes runs whose card the operator moved to the
// aborted or done column, and returns the still-open remainder.
func (s *Scheduler) scanTerminalColumns(ctx context.Context, runs []*executor.Run) []*executor.Run {
	aborted, err := s.board.ScanAborted(ctx)
	if err != nil {
		s.log.Warn(fmt.Sprintf("scan aborted: %v", err))
	}
	done, err := s.board.ScanDone(ctx)
	if err != nil {
		s.log.Warn(fmt.Sprintf("scan done: %v", err))
	}

	remaining := runs[:0]
	for _, run := range runs {
		outcome := ""
		if _, ok := aborted[run.IssueID]; ok {
			outcome = names.OutcomeAborted
		} else if _, ok := done[run.IssueID]; ok {
			outcome = names.OutcomeManualRelease
		}
		if outcome == "" {
			remaining = append(remaining, run)
			continue
		}
		if s.busy(run.IssueID) {
			// Close it next poll, once the in-flight executor finishes.
			continue
		}

		batch := s.clients.Ledger.NewBatch()
		batch.Outcome(run.ID, outcome, nil)
		if err := batch.Flush(ctx); err != nil {
			s.log.Error(err, "close run")
			remaining = append(remaining, run)
			continue
		}
		s.log.Info(fmt.Sprintf("closed %s with %s", run.IssueID, outcome))
	}
	return remaining
}

// retryFromBlocked re-emits the retry act for stalled runs whose card the
// user moved out of the blocked column.
func (s *Scheduler) retryFromBlocked(ctx context.Context, runs []*executor.Run) {
	blocked, err := s.board.ScanBlocked(ctx)
	if err != nil {
		s.log.Warn(fmt.Sprintf("scan blocked: %v", err))
		return
	}

	for _, run := range runs {
		if run.PendingAct != nil {
			continue
		}
		if _, still := blocked[run.IssueID]; still {
			continue
		}
		target, ok := s.analysis.RetryTargets[run.LatestOutcome]
		if !ok {
			continue
		}

		container := run.ID
		if target.GroupLabel != "" {
			if id, ok := run.Groups[target.GroupLabel]; ok && id != "" {
				container = id
			}
		}

		batch := s.clients.Ledger.NewBatch()
		outcomeID := batch.Outcome(container, names.OutcomeResumed, nil)
		actID := batch.Act(outcomeID, target.ActName, nil)
		if err := batch.Flush(ctx); err != nil {
			s.log.Error(err, "retry commit")
			continue
		}

		run.LatestOutcome = names.OutcomeResumed
		run.PendingAct = &ledger.PendingAct{ID: actID, Name: target.ActName}
		if target.BoardState != "" {
			s.syncBoardColumn(run, target.BoardState)
		}
		s.log.Info(fmt.Sprintf("retrying %s at %s", run.IssueID, target.ActName))
	}
}

// dispatch partitions pending acts into waiting acts (inline, capped) and
// work acts (concurrency slots).
func (s *Scheduler) dispatch(ctx context.Context, runs []*executor.Run) {
	var waiting, work []*executor.Run
	for _, run := range runs {
		if run.PendingAct == nil || s.busy(run.IssueID) {
			continue
		}

		node, err := s.graph.Lookup(run.PendingAct.Name)
		if err != nil {
			s.log.Warn(fmt.Sprintf("%s: pending act %q not in graph", run.IssueID, run.PendingAct.Name))
			continue
		}

		if !node.PhaseGroup() {
			if e, err := s.registry.Get(node.Executor); err == nil && executor.WaitingCapable(e) {
				waiting = append(waiting, run)
				continue
			}
		}
		work = append(work, run)
	}

	// Waiting acts resolve instantly (they only observe external state),
	// so they run inline and never consume slots.
	waitingCap := s.cfg.ConcurrencyOrDefault() * 5
	if waitingCap < 10 {
		waitingCap = 10
	}
	for i, run := range waiting {
		if i >= waitingCap {
			break
		}
		s.processRun(ctx, run)
	}

	slots := s.cfg.ConcurrencyOrDefault() - s.InFlight()
	for _, run := range work {
		if slots <= 0 {
			break
		}
		if s.launch(ctx, run) {
			slots--
		}
	}
}

func (s *Scheduler) busy(issueID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[issueID]
	return ok
}

// launch starts a work act in its own goroutine, tracked in the in-flight
// map keyed by issue id. The goroutine runs on a context detached from the
// poll loop's: the first shutdown signal stops polling but must not kill a
// coder session mid-flight or flush its edge commit on a cancelled context.
func (s *Scheduler) launch(ctx context.Context, run *executor.Run) bool {
	s.mu.Lock()
	if _, busy := s.inFlight[run.IssueID]; busy {
		s.mu.Unlock()
		return false
	}
	s.inFlight[run.IssueID] = struct{}{}
	s.mu.Unlock()

	workCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, run.IssueID)
			s.mu.Unlock()
		}()
		s.processRun(workCtx, run)
	}()
	return true
}

// parseIssueNumber extracts the trailing issue number from an issue id
// like "owner/repo#123". Returns 0 when the id carries none.
func parseIssueNumber(issueID string) int {
	i := len(issueID)
	for i > 0 && issueID[i-1] >= '0' && issueID[i-1] <= '9' {
		i--
	}
	if i == len(issueID) {
		return 0
	}
	n, err := strconv.Atoi(issueID[i:])
	if err != nil {
		return 0
	}
	return n
}
