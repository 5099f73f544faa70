package deploy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeDeployBatch(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		trigger    Candidate
		candidates []Candidate
		want       []string
	}{
		{
			name:    "trigger alone when nothing overlaps",
			trigger: Candidate{IssueID: "a", Repos: []string{"api"}},
			candidates: []Candidate{
				{IssueID: "b", Repos: []string{"web"}},
			},
			want: []string{"a"},
		},
		{
			name:    "direct repo overlap joins the batch",
			trigger: Candidate{IssueID: "a", Repos: []string{"api"}},
			candidates: []Candidate{
				{IssueID: "b", Repos: []string{"api"}},
				{IssueID: "c", Repos: []string{"web"}},
			},
			want: []string{"a", "b"},
		},
		{
			name:    "transitive overlap closes the batch",
			trigger: Candidate{IssueID: "a", Repos: []string{"api"}},
			candidates: []Candidate{
				{IssueID: "c", Repos: []string{"web", "docs"}},
				{IssueID: "b", Repos: []string{"api", "web"}},
			},
			want: []string{"a", "b", "c"},
		},
		{
			name:    "result sorted by issue id",
			trigger: Candidate{IssueID: "z", Repos: []string{"api"}},
			candidates: []Candidate{
				{IssueID: "m", Repos: []string{"api"}},
				{IssueID: "a", Repos: []string{"api"}},
			},
			want: []string{"a", "m", "z"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			batch := ComputeDeployBatch(tc.trigger, tc.candidates)
			got := make([]string, 0, len(batch))
			for _, c := range batch {
				got = append(got, c.IssueID)
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func TestComputeDeployBatchOrderIndependent(t *testing.T) {
	t.Parallel()

	trigger := Candidate{IssueID: "t", Repos: []string{"a"}}
	forward := []Candidate{
		{IssueID: "x", Repos: []string{"a", "b"}},
		{IssueID: "y", Repos: []string{"b", "c"}},
		{IssueID: "z", Repos: []string{"c"}},
	}
	reversed := []Candidate{forward[2], forward[1], forward[0]}

	require.Equal(t, ComputeDeployBatch(trigger, forward), ComputeDeployBatch(trigger, reversed))
}

func TestTopoSort(t *testing.T) {
	t.Parallel()

	t.Run("orders dependencies first", func(t *testing.T) {
		t.Parallel()

		order, ok := TopoSort(map[string][]string{
			"web": {"api"},
			"api": {"db"},
		})
		require.True(t, ok)
		require.Equal(t, []string{"db", "api", "web"}, order)
	})

	t.Run("deterministic with independent nodes", func(t *testing.T) {
		t.Parallel()

		order, ok := TopoSort(map[string][]string{
			"b": nil,
			"a": nil,
			"c": {"a", "b"},
		})
		require.True(t, ok)
		require.Equal(t, []string{"a", "b", "c"}, order)
	})

	t.Run("cycle reported", func(t *testing.T) {
		t.Parallel()

		_, ok := TopoSort(map[string][]string{
			"a": {"b"},
			"b": {"a"},
		})
		require.False(t, ok)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		order, ok := TopoSort(nil)
		require.True(t, ok)
		require.Empty(t, order)
	})
}
