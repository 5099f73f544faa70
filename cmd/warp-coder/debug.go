package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/ledger"
	"github.com/warpmetrics/warp-coder/internal/names"
	"github.com/warpmetrics/warp-coder/internal/scheduler"
)

func newDebugCmd(flags *rootFlags) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "debug [issueId]",
		Short: "Step runs through the workflow one act at a time",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			sched := scheduler.New(scheduler.Options{
				Config:   a.cfg,
				Secrets:  a.secrets,
				Graph:    a.graph,
				Registry: a.registry,
				Clients:  a.clients,
				Board:    a.board,
				Log:      a.log,
			})

			runs, err := sched.OpenRuns(ctx)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				runs, err = a.ensureDebugRun(ctx, runs, args[0], title)
				if err != nil {
					return err
				}
			}
			if len(runs) == 0 {
				a.printf("no open runs")
				return nil
			}

			model := newDebugModel(ctx, sched, runs)
			_, err = tea.NewProgram(model).Run()
			return err
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title when creating a run for a new issueId")
	return cmd
}

// ensureDebugRun narrows the list to the requested issue, creating a fresh
// run against the real ledger when none exists yet.
func (a *app) ensureDebugRun(ctx context.Context, runs []*executor.Run, issueID, title string) ([]*executor.Run, error) {
	for _, run := range runs {
		if run.IssueID == issueID {
			return []*executor.Run{run}, nil
		}
	}

	first := a.graph.First()
	if first == nil {
		return nil, fmt.Errorf("workflow graph has no acts")
	}
	if title == "" {
		title = issueID
	}

	batch := a.clients.Ledger.NewBatch()
	runID := batch.Run(issueID, a.cfg.PrimaryRepo(), title)
	outcomeID := batch.Outcome(runID, names.OutcomeStarted, nil)
	actID := batch.Act(outcomeID, first.Name, nil)
	if err := batch.Flush(ctx); err != nil {
		return nil, err
	}

	return []*executor.Run{{
		ID:            runID,
		IssueID:       issueID,
		Repo:          a.cfg.PrimaryRepo(),
		Title:         title,
		LatestOutcome: names.OutcomeStarted,
		PendingAct:    &ledger.PendingAct{ID: actID, Name: first.Name},
		Groups:        make(map[string]string),
	}}, nil
}

var (
	debugTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	debugSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	debugFaintStyle    = lipgloss.NewStyle().Faint(true)
)

type stepDoneMsg struct{}

type debugModel struct {
	ctx      context.Context
	sched    *scheduler.Scheduler
	runs     []*executor.Run
	cursor   int
	spinner  spinner.Model
	stepping bool
	status   string
}

func newDebugModel(ctx context.Context, sched *scheduler.Scheduler, runs []*executor.Run) debugModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return debugModel{ctx: ctx, sched: sched, runs: runs, spinner: sp}
}

func (m debugModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m debugModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.runs)-1 {
				m.cursor++
			}
		case "enter", "s":
			if m.stepping {
				return m, nil
			}
			run := m.runs[m.cursor]
			if run.PendingAct == nil {
				m.status = "no pending act"
				return m, nil
			}
			m.stepping = true
			m.status = fmt.Sprintf("running %s...", run.PendingAct.Name)
			return m, func() tea.Msg {
				m.sched.StepRun(m.ctx, run)
				return stepDoneMsg{}
			}
		}

	case stepDoneMsg:
		m.stepping = false
		run := m.runs[m.cursor]
		if run.PendingAct != nil {
			m.status = fmt.Sprintf("now at %s, pending %s", run.LatestOutcome, run.PendingAct.Name)
		} else {
			m.status = fmt.Sprintf("now at %s, no pending act", run.LatestOutcome)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m debugModel) View() string {
	s := debugTitleStyle.Render("warp-coder debug") + "\n\n"

	for i, run := range m.runs {
		pending := "-"
		if run.PendingAct != nil {
			pending = run.PendingAct.Name
		}
		line := fmt.Sprintf("%s  %s  [%s -> %s]", run.IssueID, run.Title, run.LatestOutcome, pending)
		if i == m.cursor {
			line = debugSelectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		s += line + "\n"
	}

	s += "\n"
	if m.stepping {
		s += m.spinner.View() + " "
	}
	s += m.status + "\n"
	s += debugFaintStyle.Render("enter: step  up/down: select  q: quit") + "\n"
	return s
}
