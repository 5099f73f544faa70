package ledger

import (
	"context"
	"net/url"

	"github.com/warpmetrics/warp-coder/internal/names"
)

// FindOpenIssueRuns returns every not-yet-terminal issue run with its
// latest outcome, pending act and groups map. One list query plus one
// detail fetch per run; results must not be cached across poll cycles
// because the ledger is authoritative and other writers exist.
func (c *Client) FindOpenIssueRuns(ctx context.Context) ([]*OpenRun, error) {
	if !c.Enabled() {
		return nil, nil
	}

	var list runList
	values := url.Values{}
	values.Set("label", LabelIssue)
	values.Set("open", "true")
	if err := c.getJSON(ctx, "/v1/runs", values, &list); err != nil {
		return nil, err
	}

	runs := make([]*OpenRun, 0, len(list.Runs))
	for _, run := range list.Runs {
		var detail runDetail
		if err := c.getJSON(ctx, "/v1/runs/"+url.PathEscape(run.ID), nil, &detail); err != nil {
			return nil, err
		}

		open := resolveOpenRun(run, &detail)
		if open == nil {
			continue
		}
		runs = append(runs, open)
	}

	return runs, nil
}

// resolveOpenRun projects one run's event log into its current state.
// Returns nil when the run's latest outcome is terminal; the ledger's open
// filter normally excludes those, but the projection is re-checked here so
// a stale index never resurrects a closed run.
func resolveOpenRun(run Run, detail *runDetail) *OpenRun {
	open := &OpenRun{
		ID:      run.ID,
		IssueID: run.IssueID,
		Repo:    run.Repo,
		Title:   run.Title,
		Groups:  make(map[string]string, len(detail.Groups)),
	}

	linked := make(map[string]string, len(detail.Links))
	for _, link := range detail.Links {
		linked[link.ChildID] = link.ParentID
	}
	for _, group := range detail.Groups {
		if linked[group.ID] == run.ID {
			open.Groups[group.Label] = group.ID
		}
	}

	// Branch containers: the issue run and its groups. Outcomes on call
	// containers are executor telemetry and do not advance the run.
	branch := map[string]struct{}{run.ID: {}}
	for _, id := range open.Groups {
		branch[id] = struct{}{}
	}

	var latest *Outcome
	for i := range detail.Outcomes {
		outcome := &detail.Outcomes[i]
		if _, ok := branch[outcome.ContainerID]; !ok {
			continue
		}
		if latest == nil || outcome.Ts > latest.Ts {
			latest = outcome
		}
	}
	if latest != nil {
		open.LatestOutcome = latest.Name
		if names.IsTerminal(latest.Name) {
			return nil
		}
	}

	// Pending act: the most recent act with no branch outcome appended
	// after it.
	var last *Act
	for i := range detail.Acts {
		act := &detail.Acts[i]
		if last == nil || act.Ts > last.Ts {
			last = act
		}
	}
	if last != nil {
		followed := false
		for i := range detail.Outcomes {
			outcome := &detail.Outcomes[i]
			if _, ok := branch[outcome.ContainerID]; !ok {
				continue
			}
			if outcome.Ts > last.Ts {
				followed = true
				break
			}
		}
		if !followed {
			open.PendingAct = &PendingAct{ID: last.ID, Name: last.Name, Opts: last.Opts}
		}
	}

	return open
}

// FindActsByName queries acts by name across all runs. Used by the deploy
// context provider to discover sibling issues awaiting deploy.
func (c *Client) FindActsByName(ctx context.Context, name string) ([]Act, error) {
	if !c.Enabled() {
		return nil, nil
	}

	var list actList
	values := url.Values{}
	values.Set("name", name)
	if err := c.getJSON(ctx, "/v1/acts", values, &list); err != nil {
		return nil, err
	}
	return list.Acts, nil
}
