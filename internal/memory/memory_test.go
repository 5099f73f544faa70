package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndRead(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir(), true, 100)
	require.True(t, store.Enabled())

	content, err := store.Read()
	require.NoError(t, err)
	require.Empty(t, content)

	require.NoError(t, store.Append("- first insight"))
	require.NoError(t, store.Append("- second insight", "- third insight"))

	content, err = store.Read()
	require.NoError(t, err)
	require.Equal(t, "- first insight\n- second insight\n- third insight\n", content)

	count, err := store.LineCount()
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestDisabledStoreDropsWrites(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir(), false, 100)
	require.False(t, store.Enabled())

	require.NoError(t, store.Append("- dropped"))
	content, err := store.Read()
	require.NoError(t, err)
	require.Empty(t, content)

	needs, err := store.NeedsCompaction()
	require.NoError(t, err)
	require.False(t, needs)
}

func TestNeedsCompaction(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir(), true, 2)

	require.NoError(t, store.Append("- one", "- two"))
	needs, err := store.NeedsCompaction()
	require.NoError(t, err)
	require.False(t, needs)

	require.NoError(t, store.Append("- three"))
	needs, err = store.NeedsCompaction()
	require.NoError(t, err)
	require.True(t, needs)
}

func TestReplace(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir(), true, 100)
	require.NoError(t, store.Append("- a", "- b", "- c"))

	require.NoError(t, store.Replace("- compacted\n"))

	content, err := store.Read()
	require.NoError(t, err)
	require.Equal(t, "- compacted\n", content)

	count, err := store.LineCount()
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
