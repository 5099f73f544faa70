// Package deploy holds the pure release-planning helpers: the deploy
// batch fixed point and the dependency topological sort. The scheduler
// only reaches these through the deploy context provider, which keeps
// them unit-testable in isolation.
package deploy

import (
	"sort"
)

// Candidate is one issue eligible for deploy batching.
type Candidate struct {
	IssueID string
	Repos   []string
}

// ComputeDeployBatch returns the set of candidates closed under "shares at
// least one repo with a batch member", starting from the trigger. The
// result is sorted by issue id and independent of input order.
func ComputeDeployBatch(trigger Candidate, candidates []Candidate) []Candidate {
	batch := map[string]Candidate{trigger.IssueID: trigger}
	repos := make(map[string]struct{}, len(trigger.Repos))
	for _, repo := range trigger.Repos {
		repos[repo] = struct{}{}
	}

	// Fixed point: each pass admits every candidate overlapping the
	// batch's repo set; stop when a pass admits nothing.
	for {
		grew := false
		for _, candidate := range candidates {
			if _, ok := batch[candidate.IssueID]; ok {
				continue
			}
			if !overlaps(candidate.Repos, repos) {
				continue
			}
			batch[candidate.IssueID] = candidate
			for _, repo := range candidate.Repos {
				repos[repo] = struct{}{}
			}
			grew = true
		}
		if !grew {
			break
		}
	}

	out := make([]Candidate, 0, len(batch))
	for _, candidate := range batch {
		out = append(out, candidate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssueID < out[j].IssueID })
	return out
}

func overlaps(repos []string, set map[string]struct{}) bool {
	for _, repo := range repos {
		if _, ok := set[repo]; ok {
			return true
		}
	}
	return false
}

// TopoSort orders nodes so every node follows its dependencies (Kahn's
// algorithm, deterministic via sorted queues). Returns ok=false on a
// cycle. An empty input yields an empty order.
func TopoSort(deps map[string][]string) ([]string, bool) {
	indegree := make(map[string]int, len(deps))
	dependents := make(map[string][]string, len(deps))

	for node := range deps {
		if _, ok := indegree[node]; !ok {
			indegree[node] = 0
		}
	}
	for node, nodeDeps := range deps {
		for _, dep := range nodeDeps {
			if _, ok := indegree[dep]; !ok {
				indegree[dep] = 0
			}
			indegree[node]++
			dependents[dep] = append(dependents[dep], node)
		}
	}

	var queue []string
	for node, degree := range indegree {
		if degree == 0 {
			queue = append(queue, node)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(indegree))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var next []string
		for _, dependent := range dependents[node] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				next = append(next, dependent)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
	}

	if len(order) != len(indegree) {
		return nil, false
	}
	return order, true
}
