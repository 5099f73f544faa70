package scheduler

import (
	"context"
	"fmt"

	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/graph"
	"github.com/warpmetrics/warp-coder/internal/ledger"
	"github.com/warpmetrics/warp-coder/internal/logger"
	"github.com/warpmetrics/warp-coder/internal/names"
	warperrors "github.com/warpmetrics/warp-coder/pkg/errors"
)

// pipelineOutcome is the telemetry outcome name recorded on pipeline runs.
// Pipeline containers are excluded from branch resolution, so the name
// never collides with graph outcomes.
const pipelineOutcome = "Executed"

// processRun advances one issue run until it hits a terminal edge, a
// waiting result, a commit failure, or a same-act self-transition. Every
// advancement is one atomic event batch; local state is only updated after
// the batch lands.
func (s *Scheduler) processRun(ctx context.Context, run *executor.Run) {
	log := s.log.WithRun(run.ID, run.IssueID)

	for {
		act := run.PendingAct
		if act == nil {
			return
		}

		node, err := s.graph.Lookup(act.Name)
		if err != nil {
			log.Error(warperrors.NewGraphViolationError(act.Name, "pending act not in graph"), "halting run")
			return
		}

		batch := s.clients.Ledger.NewBatch()

		var (
			result       *executor.Result
			executorName string
			effectCtx    *executor.Context
		)

		if node.PhaseGroup() {
			groupID := batch.Group(run.ID, node.Label)
			run.Groups[node.Label] = groupID
			result = &executor.Result{Type: names.ResultCreated}
		} else {
			result, effectCtx = s.invoke(ctx, run, act, node, log)
			if result == nil || result.Waiting() {
				return
			}
			executorName = node.Executor
		}

		resSpec, ok := node.Results[result.Type]
		if !ok || len(resSpec.Outcomes) == 0 {
			log.Error(warperrors.NewGraphViolationError(act.Name,
				fmt.Sprintf("no edges for result type %q", result.Type)), "halting run")
			return
		}
		edges := resSpec.Outcomes

		newAct, boardOutcome := s.commitEdges(ctx, batch, run, act, edges, result, log)
		if boardOutcome == "" {
			return
		}

		s.syncBoard(run, boardOutcome)

		if executorName != "" {
			if effect, ok := s.registry.EffectFor(executorName, result.Type); ok {
				if err := effect(ctx, run, result, effectCtx); err != nil {
					log.Warn(fmt.Sprintf("effect %s:%s failed: %v", executorName, result.Type, err))
				}
			}
		}

		run.LatestOutcome = boardOutcome
		previous := act.Name
		run.PendingAct = newAct
		if newAct == nil || newAct.Name == previous {
			return
		}
	}
}

// invoke runs one work act's executor: provider context, pipeline run,
// execution, telemetry and declared-result enforcement. A nil result means
// the run must stop for this poll.
func (s *Scheduler) invoke(ctx context.Context, run *executor.Run, act *ledger.PendingAct, node *graph.Node, log *logger.Logger) (*executor.Result, *executor.Context) {
	e, err := s.registry.Get(node.Executor)
	if err != nil {
		log.Warn(fmt.Sprintf("act %s: %v", act.Name, err))
		return nil, nil
	}
	canWait := executor.WaitingCapable(e)

	ec := &executor.Context{
		Config:  s.cfg,
		Secrets: s.secrets,
		Clients: s.clients,
		ActOpts: act.Opts,
	}

	if provider, ok := s.registry.Provider(node.Executor); ok {
		extra, err := provider(ctx, run, ec)
		if err != nil {
			log.Error(err, fmt.Sprintf("context provider for %s", node.Executor))
			return nil, nil
		}
		ec.Extra = extra
	}

	// Waiting-capable executors defer the pipeline run: most invocations
	// resolve to waiting and must leave no trace.
	if !canWait {
		ec.PipelineRunID = s.startPipelineRun(ctx, run, act.ID, log)
	}

	result, err := e.Execute(ctx, run, ec)
	if err != nil {
		log.Error(err, fmt.Sprintf("executor %s", node.Executor))
		return nil, nil
	}
	if result == nil {
		log.Warn(fmt.Sprintf("executor %s returned no result", node.Executor))
		return nil, nil
	}
	if result.Waiting() {
		return result, ec
	}

	if canWait {
		ec.PipelineRunID = s.startPipelineRun(ctx, run, act.ID, log)
	}
	s.recordPipelineOutcome(ctx, ec.PipelineRunID, node.Executor, result, log)

	if _, declared := s.analysis.ResultTypesByExecutor[node.Executor][result.Type]; !declared {
		log.Error(warperrors.NewGraphViolationError(act.Name,
			fmt.Sprintf("executor %s returned undeclared result type %q", node.Executor, result.Type)),
			"halting run")
		return nil, nil
	}

	return result, ec
}

// commitEdges appends the result's edge sequence as one atomic batch and
// returns the new pending act and the board outcome. An empty board
// outcome signals a failed commit.
func (s *Scheduler) commitEdges(ctx context.Context, batch *ledger.Batch, run *executor.Run, act *ledger.PendingAct, edges []graph.Edge, result *executor.Result, log *logger.Logger) (*ledger.PendingAct, string) {
	var newAct *ledger.PendingAct
	lastContainer := run.ID

	for _, edge := range edges {
		container := s.resolveContainer(run, edge, log)
		outcomeID := batch.Outcome(container, edge.Name, result.OutcomeOpts)
		if edge.Next != "" {
			opts := result.NextActOpts
			if opts == nil {
				opts = act.Opts
			}
			actID := batch.Act(outcomeID, edge.Next, opts)
			newAct = &ledger.PendingAct{ID: actID, Name: edge.Next, Opts: opts}
		}
		lastContainer = container
	}

	boardOutcome := edges[len(edges)-1].Name
	if lastContainer != run.ID {
		// Mirror the board outcome on the issue run so its latest state
		// reflects the phase.
		batch.Outcome(run.ID, boardOutcome, result.OutcomeOpts)
	}

	if err := batch.Flush(ctx); err != nil {
		log.Error(err, "commit edges")
		return nil, ""
	}
	return newAct, boardOutcome
}

func (s *Scheduler) resolveContainer(run *executor.Run, edge graph.Edge, log *logger.Logger) string {
	if edge.In == "" || edge.In == names.ContainerIssue {
		return run.ID
	}
	if id, ok := run.Groups[edge.In]; ok && id != "" {
		return id
	}
	log.Warn(fmt.Sprintf("edge container %q has no group on this run, using issue run", edge.In))
	return run.ID
}

// startPipelineRun creates the telemetry container wrapping one executor
// invocation. Best-effort: an empty id disables per-invocation telemetry
// for this step.
func (s *Scheduler) startPipelineRun(ctx context.Context, run *executor.Run, actID string, log *logger.Logger) string {
	batch := s.clients.Ledger.NewBatch()
	id := batch.Call(run.ID, actID)
	if err := batch.Flush(ctx); err != nil {
		log.Warn(fmt.Sprintf("start pipeline run: %v", err))
		return ""
	}
	return id
}

// recordPipelineOutcome attaches the executor's telemetry to its pipeline
// run, with one bounded retry.
func (s *Scheduler) recordPipelineOutcome(ctx context.Context, pipelineRunID, step string, result *executor.Result, log *logger.Logger) {
	if pipelineRunID == "" {
		return
	}

	opts := map[string]any{
		"step":    step,
		"success": result.Type != "error" && result.Error == "",
	}
	if result.CostUSD != nil {
		opts["costUsd"] = *result.CostUSD
	}
	if result.Error != "" {
		opts["error"] = result.Error
	}
	if result.Trace != nil {
		opts["trace"] = result.Trace
	}

	for attempt := 0; attempt < 2; attempt++ {
		batch := s.clients.Ledger.NewBatch()
		batch.Outcome(pipelineRunID, pipelineOutcome, opts)
		if err := batch.Flush(ctx); err == nil {
			return
		} else if attempt == 1 {
			log.Warn(fmt.Sprintf("record pipeline outcome: %v", err))
		}
	}
}

// syncBoard mirrors the board outcome's column onto the card,
// fire-and-forget.
func (s *Scheduler) syncBoard(run *executor.Run, outcome string) {
	col, ok := s.graph.States[outcome]
	if !ok {
		return
	}
	s.syncBoardColumn(run, col)
}

func (s *Scheduler) syncBoardColumn(run *executor.Run, col names.Column) {
	if run.BoardItem == nil {
		return
	}
	item := *run.BoardItem

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), boardSyncTimeout)
		defer cancel()
		if err := s.board.SyncState(ctx, item, col); err != nil {
			s.log.Warn(fmt.Sprintf("board sync %s -> %s: %v", item.IssueID, col, err))
		}
	}()
}
