package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpmetrics/warp-coder/internal/names"
	warperrors "github.com/warpmetrics/warp-coder/pkg/errors"
)

const minimalWorkflow = `
version: "1"
name: minimal

acts:
  - name: Phase
    label: phase
    executor: none
    results:
      created:
        - { name: PhaseStarted, in: phase, next: Work }

  - name: Work
    label: work
    executor: work
    group: phase
    results:
      success:
        - { name: WorkDone, in: phase, next: Finish }
      error:
        - { name: WorkFailed, in: phase }

  - name: Finish
    label: finish
    executor: finish
    group: phase
    results:
      success:
        - { name: Released, in: Issue }

states:
  Started: todo
  PhaseStarted: inProgress
  WorkDone: inReview
  WorkFailed: blocked
  Released: done
`

var minimalDeclared = map[string][]string{
	"work":   {"success", "error"},
	"finish": {"success"},
}

func compileYAML(t *testing.T, source string, declared map[string][]string) (*Graph, []string, error) {
	t.Helper()
	doc, err := ParseBytes([]byte(source), "test.yaml")
	require.NoError(t, err)
	return Compile(doc, declared)
}

func TestParseBytes(t *testing.T) {
	t.Parallel()

	t.Run("parses edge shorthand forms", func(t *testing.T) {
		t.Parallel()

		doc, err := ParseBytes([]byte(`
version: "1"
acts:
  - name: A
    label: a
    executor: work
    results:
      success:
        - Done
states:
  Done: done
`), "test.yaml")
		require.NoError(t, err)
		require.Len(t, doc.Acts, 1)

		edges := doc.Acts[0].Results["success"].Outcomes
		require.Len(t, edges, 1)
		require.Equal(t, "Done", edges[0].Name)
		require.True(t, edges[0].Terminal())
	})

	t.Run("malformed yaml is a parse error with line info", func(t *testing.T) {
		t.Parallel()

		_, err := ParseBytes([]byte("version: \"1\"\nacts: [\n"), "broken.yaml")
		require.Error(t, err)
		var parseErr *warperrors.ParseError
		require.ErrorAs(t, err, &parseErr)
		require.Equal(t, "broken.yaml", parseErr.Path)
	})
}

func TestCompile(t *testing.T) {
	t.Parallel()

	g, warnings, err := compileYAML(t, minimalWorkflow, minimalDeclared)
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, []string{"Phase", "Work", "Finish"}, g.Order)
	require.Equal(t, "Phase", g.First().Name)
	require.True(t, g.Acts["Phase"].PhaseGroup())
	require.False(t, g.Acts["Work"].PhaseGroup())
	require.Equal(t, names.ColumnBlocked, g.States["WorkFailed"])

	board, ok := g.Acts["Work"].BoardOutcome("success")
	require.True(t, ok)
	require.Equal(t, "WorkDone", board)

	node, err := g.Lookup("Work")
	require.NoError(t, err)
	require.Equal(t, "work", node.Executor)
	_, err = g.Lookup("Missing")
	require.Error(t, err)
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		source   string
		declared map[string][]string
		wantMsg  string
	}{
		{
			name: "unknown board column",
			source: `
version: "1"
acts:
  - name: A
    label: a
    executor: work
    results:
      success:
        - { name: Done }
states:
  Done: shipping
`,
			wantMsg: "unknown board column",
		},
		{
			name: "duplicate act",
			source: `
version: "1"
acts:
  - name: A
    label: a
    executor: work
    results:
      success:
        - { name: Done }
  - name: A
    label: b
    executor: work
    results:
      success:
        - { name: Done }
states:
  Done: done
`,
			wantMsg: "duplicate act",
		},
		{
			name: "outcome missing from states table",
			source: `
version: "1"
acts:
  - name: A
    label: a
    executor: work
    results:
      success:
        - { name: Mystery }
states:
  Done: done
`,
			wantMsg: "no states table entry",
		},
		{
			name: "next references unknown act",
			source: `
version: "1"
acts:
  - name: A
    label: a
    executor: work
    results:
      success:
        - { name: Done, next: Ghost }
states:
  Done: done
`,
			wantMsg: "unknown act",
		},
		{
			name: "in references unknown label",
			source: `
version: "1"
acts:
  - name: A
    label: a
    executor: work
    results:
      success:
        - { name: Done, in: ghost }
states:
  Done: done
`,
			wantMsg: "unknown label",
		},
		{
			name: "group references non-group node",
			source: `
version: "1"
acts:
  - name: A
    label: a
    executor: work
    results:
      success:
        - { name: Done }
  - name: B
    label: b
    executor: work
    group: a
    results:
      success:
        - { name: Done }
states:
  Done: done
`,
			wantMsg: "not a phase-group node",
		},
		{
			name: "phase group with wrong result name",
			source: `
version: "1"
acts:
  - name: A
    label: a
    executor: none
    results:
      opened:
        - { name: Done }
states:
  Done: done
`,
			wantMsg: "must be named",
		},
		{
			name: "undeclared result type",
			source: `
version: "1"
acts:
  - name: A
    label: a
    executor: work
    results:
      surprise:
        - { name: Done }
states:
  Done: done
`,
			declared: map[string][]string{"work": {"success"}},
			wantMsg:  "not declared by executor",
		},
		{
			name: "terminal outcome shared across acts",
			source: `
version: "1"
acts:
  - name: A
    label: a
    executor: work
    results:
      success:
        - { name: Done, next: B }
      error:
        - { name: Failed }
  - name: B
    label: b
    executor: work
    results:
      error:
        - { name: Failed }
states:
  Done: done
  Failed: blocked
`,
			wantMsg: "produced by both",
		},
		{
			name: "declared result type unused by any act",
			source: `
version: "1"
acts:
  - name: A
    label: a
    executor: work
    results:
      success:
        - { name: Done }
states:
  Done: done
`,
			declared: map[string][]string{"work": {"success", "error"}},
			wantMsg:  "no act uses it",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := compileYAML(t, tc.source, tc.declared)
			require.Error(t, err)
			var validationErr *warperrors.ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestCompileWaitingNeverRequiresAnEdge(t *testing.T) {
	t.Parallel()

	// A waiting-capable executor binds only its non-waiting results.
	declared := map[string][]string{
		"work":   {"success", "error"},
		"finish": {"success", names.ResultWaiting},
	}
	_, _, err := compileYAML(t, minimalWorkflow, declared)
	require.NoError(t, err)
}

func TestCompileWarnsOnUnreachableActs(t *testing.T) {
	t.Parallel()

	source := `
version: "1"
acts:
  - name: A
    label: a
    executor: work
    results:
      success:
        - { name: Done }
  - name: Island
    label: island
    executor: work
    results:
      success:
        - { name: Stranded }
states:
  Done: done
  Stranded: done
`
	_, warnings, err := compileYAML(t, source, nil)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], `"Island" is unreachable`)
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	g, _, err := compileYAML(t, minimalWorkflow, minimalDeclared)
	require.NoError(t, err)

	a := Analyze(g)

	require.Equal(t, "work", a.ActExecutor["Work"])
	require.Equal(t, "finish", a.ActExecutor["Finish"])
	require.NotContains(t, a.ActExecutor, "Phase")

	require.Contains(t, a.ResultTypesByExecutor["work"], "success")
	require.Contains(t, a.ResultTypesByExecutor["work"], "error")
	require.NotContains(t, a.ResultTypesByExecutor["work"], "created")

	// WorkFailed is a terminal edge of a work act: the retry target re-emits
	// Work under its group, entering at the group's starting column.
	target, ok := a.RetryTargets["WorkFailed"]
	require.True(t, ok)
	require.Equal(t, "Work", target.ActName)
	require.Equal(t, "phase", target.GroupLabel)
	require.Equal(t, names.ColumnInProgress, target.BoardState)

	// Released closes the run via Finish.
	target, ok = a.RetryTargets["Released"]
	require.True(t, ok)
	require.Equal(t, "Finish", target.ActName)
}

func TestFindReachableActs(t *testing.T) {
	t.Parallel()

	g, _, err := compileYAML(t, minimalWorkflow, minimalDeclared)
	require.NoError(t, err)

	reachable := FindReachableActs(g, "Phase")
	require.Len(t, reachable, 3)
	require.Contains(t, reachable, "Work")
	require.Contains(t, reachable, "Finish")

	require.Empty(t, FindReachableActs(g, "Ghost"))
}

func TestFindOrphanOutcomes(t *testing.T) {
	t.Parallel()

	g, _, err := compileYAML(t, minimalWorkflow, minimalDeclared)
	require.NoError(t, err)

	// Started appears in the states table but no edge produces it; the
	// scheduler records it at intake.
	require.Equal(t, []string{"Started"}, FindOrphanOutcomes(g))
}
