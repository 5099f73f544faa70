package codehost

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsBotComment(t *testing.T) {
	t.Parallel()

	require.True(t, IsBotComment("Need input\n\n"+MarkerQuestion))
	require.True(t, IsBotComment(ErrorMarker("boom")))
	require.True(t, IsBotComment(ActMarker("act_123")))
	require.False(t, IsBotComment("looks good to me"))
	require.False(t, IsBotComment(""))
}

func TestErrorMarkerSanitizesCloser(t *testing.T) {
	t.Parallel()

	marker := ErrorMarker("failed --> badly")
	require.NotContains(t, marker[:len(marker)-3], "-->")
	require.True(t, IsBotComment(marker))
}

func TestLastNonBotComment(t *testing.T) {
	t.Parallel()

	comments := []Comment{
		{Author: "user", Body: "first"},
		{Author: "bot", Body: "question\n" + MarkerQuestion},
		{Author: "user", Body: "second"},
		{Author: "bot", Body: ActMarker("act_1")},
	}

	last := LastNonBotComment(comments)
	require.NotNil(t, last)
	require.Equal(t, "second", last.Body)

	require.Nil(t, LastNonBotComment([]Comment{{Body: MarkerQuestion}}))
	require.Nil(t, LastNonBotComment(nil))
}

func TestUserRepliedAfterQuestion(t *testing.T) {
	t.Parallel()

	now := time.Now()
	question := Comment{Author: "bot", Body: "which db?\n" + MarkerQuestion, CreatedAt: now}

	cases := []struct {
		name     string
		comments []Comment
		want     bool
	}{
		{
			name:     "no reply after question",
			comments: []Comment{question},
			want:     false,
		},
		{
			name: "user reply after question",
			comments: []Comment{
				question,
				{Author: "user", Body: "postgres", CreatedAt: now.Add(time.Minute)},
			},
			want: true,
		},
		{
			name: "only bot comments after question",
			comments: []Comment{
				question,
				{Author: "bot", Body: ErrorMarker("transient")},
			},
			want: false,
		},
		{
			name: "reply before question does not count",
			comments: []Comment{
				{Author: "user", Body: "early comment"},
				question,
			},
			want: false,
		},
		{
			name: "no question marker falls back to any user comment",
			comments: []Comment{
				{Author: "user", Body: "hello"},
			},
			want: true,
		},
		{
			name:     "empty thread",
			comments: nil,
			want:     false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, UserRepliedAfterQuestion(tc.comments))
		})
	}
}
