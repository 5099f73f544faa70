package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warpmetrics/warp-coder/internal/deploy"
	"github.com/warpmetrics/warp-coder/internal/ledger"
	"github.com/warpmetrics/warp-coder/internal/names"
)

func newReleaseCmd(flags *rootFlags) *cobra.Command {
	var preview bool

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Plan and trigger a deploy for every run awaiting release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			order, ok := deploy.TopoSort(a.cfg.Deploy.Dependencies)
			if !ok {
				return fmt.Errorf("deploy.dependencies contains a cycle")
			}
			if len(order) > 0 {
				a.printf("deploy order: %s", strings.Join(order, " -> "))
			}

			open, err := a.clients.Ledger.FindOpenIssueRuns(ctx)
			if err != nil {
				return err
			}

			var awaiting []*ledger.OpenRun
			for _, run := range open {
				if run.LatestOutcome == names.OutcomeAwaitingDeploy {
					awaiting = append(awaiting, run)
				}
			}
			if len(awaiting) == 0 {
				a.printf("nothing awaiting deploy")
				return nil
			}

			trigger := deploy.Candidate{IssueID: awaiting[0].IssueID, Repos: []string{awaiting[0].Repo}}
			var candidates []deploy.Candidate
			for _, run := range awaiting[1:] {
				candidates = append(candidates, deploy.Candidate{IssueID: run.IssueID, Repos: []string{run.Repo}})
			}
			batch := deploy.ComputeDeployBatch(trigger, candidates)

			a.printf("deploy batch (%d issues):", len(batch))
			for _, candidate := range batch {
				a.printf("  %s (%s)", candidate.IssueID, strings.Join(candidate.Repos, ", "))
			}
			if preview {
				return nil
			}

			// Trigger the deploy: each batched run gets a Deploying outcome
			// and a RunDeploy act, same as moving its card to the deploy
			// column.
			inBatch := make(map[string]struct{}, len(batch))
			for _, candidate := range batch {
				inBatch[candidate.IssueID] = struct{}{}
			}
			for _, run := range awaiting {
				if _, ok := inBatch[run.IssueID]; !ok {
					continue
				}
				container := run.ID
				if id := run.Groups["deploy"]; id != "" {
					container = id
				}
				events := a.clients.Ledger.NewBatch()
				outcomeID := events.Outcome(container, names.OutcomeDeploying, nil)
				events.Act(outcomeID, names.ActRunDeploy, nil)
				if err := events.Flush(ctx); err != nil {
					return err
				}
				a.printf("triggered deploy for %s", run.IssueID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&preview, "preview", false, "Print the plan without emitting events")
	return cmd
}
