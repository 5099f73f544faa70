package graph

import (
	"sort"

	"github.com/warpmetrics/warp-coder/internal/names"
)

// EdgeType classifies a flattened transition edge.
type EdgeType string

// Edge types. Auto edges come from a phase-group's "created" result;
// terminal edges emit no follow-up act.
const (
	EdgeTransition EdgeType = "transition"
	EdgeTerminal   EdgeType = "terminal"
	EdgeAuto       EdgeType = "auto"
)

// TransitionEdge is one flattened graph edge, used for verification and
// diagnostics.
type TransitionEdge struct {
	From    string
	Via     string
	To      string
	Outcome string
	InLabel string
	Type    EdgeType
}

// RetryTarget tells the scheduler which act to re-emit when the operator
// moves a blocked card back onto the board, and which board column the
// phase starts in.
type RetryTarget struct {
	ActName    string
	GroupLabel string
	BoardState names.Column
}

// Analysis holds the pure derivations computed once from a compiled graph.
type Analysis struct {
	graph *Graph

	// ActExecutor maps each work-act name to its executor name.
	ActExecutor map[string]string

	// ResultTypesByExecutor caches the graph-bound result types per
	// executor for runtime enforcement.
	ResultTypesByExecutor map[string]map[string]struct{}

	// TransitionEdges is the flattened edge list.
	TransitionEdges []TransitionEdge

	// RetryTargets maps terminal-result outcomes to their retry entry.
	RetryTargets map[string]RetryTarget
}

// Analyze computes the derived structures for a compiled graph.
func Analyze(g *Graph) *Analysis {
	a := &Analysis{
		graph:                 g,
		ActExecutor:           make(map[string]string),
		ResultTypesByExecutor: make(map[string]map[string]struct{}),
		RetryTargets:          make(map[string]RetryTarget),
	}

	for _, name := range g.Order {
		node := g.Acts[name]

		if !node.PhaseGroup() {
			a.ActExecutor[name] = node.Executor
			if a.ResultTypesByExecutor[node.Executor] == nil {
				a.ResultTypesByExecutor[node.Executor] = make(map[string]struct{})
			}
		}

		resultTypes := sortedResultTypes(node)
		for _, resultType := range resultTypes {
			if !node.PhaseGroup() {
				a.ResultTypesByExecutor[node.Executor][resultType] = struct{}{}
			}

			result := node.Results[resultType]
			for _, edge := range result.Outcomes {
				a.TransitionEdges = append(a.TransitionEdges, TransitionEdge{
					From:    name,
					Via:     resultType,
					To:      edge.Next,
					Outcome: edge.Name,
					InLabel: edge.In,
					Type:    edgeType(node, edge),
				})

				if edge.Terminal() && !node.PhaseGroup() {
					a.RetryTargets[edge.Name] = a.retryTarget(node)
				}
			}
		}
	}

	return a
}

// retryTarget builds the retry entry for a terminal outcome of a work act:
// re-emit the act itself, under its parent phase-group, with the board
// column the phase starts in (from the group's "created" board outcome).
func (a *Analysis) retryTarget(node *Node) RetryTarget {
	target := RetryTarget{ActName: node.Name, GroupLabel: node.Group}
	if node.Group == "" {
		return target
	}

	labels := a.graph.Labels()
	groupAct, ok := labels[node.Group]
	if !ok {
		return target
	}
	group := a.graph.Acts[groupAct]
	boardOutcome, ok := group.BoardOutcome(names.ResultCreated)
	if !ok {
		return target
	}
	if col, ok := a.graph.States[boardOutcome]; ok {
		target.BoardState = col
	}
	return target
}

func edgeType(node *Node, edge Edge) EdgeType {
	if node.PhaseGroup() {
		return EdgeAuto
	}
	if edge.Terminal() {
		return EdgeTerminal
	}
	return EdgeTransition
}

// FindReachableActs returns the set of acts reachable from startAct via
// transition edges (BFS).
func FindReachableActs(g *Graph, startAct string) map[string]struct{} {
	reachable := make(map[string]struct{})
	if _, ok := g.Acts[startAct]; !ok {
		return reachable
	}

	queue := []string{startAct}
	reachable[startAct] = struct{}{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node := g.Acts[current]
		for _, resultType := range sortedResultTypes(node) {
			for _, edge := range node.Results[resultType].Outcomes {
				if edge.Next == "" {
					continue
				}
				if _, seen := reachable[edge.Next]; seen {
					continue
				}
				reachable[edge.Next] = struct{}{}
				queue = append(queue, edge.Next)
			}
		}
	}

	return reachable
}

// FindOrphanOutcomes returns the outcomes present in the states table that
// no edge produces. These are the external-only outcomes the scheduler
// records itself (Started, Resumed, Aborted and friends).
func FindOrphanOutcomes(g *Graph) []string {
	produced := make(map[string]struct{})
	for _, node := range g.Acts {
		for _, result := range node.Results {
			for _, edge := range result.Outcomes {
				produced[edge.Name] = struct{}{}
			}
		}
	}

	var orphans []string
	for outcome := range g.States {
		if _, ok := produced[outcome]; !ok {
			orphans = append(orphans, outcome)
		}
	}
	sort.Strings(orphans)
	return orphans
}

func sortedResultTypes(node *Node) []string {
	types := make([]string, 0, len(node.Results))
	for t := range node.Results {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
