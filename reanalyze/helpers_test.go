package reanalyze

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/storage/badger"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.MemoryRepositories {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

// addFragments stores n unanalyzed fragments with distinct texts.
func addFragments(t *testing.T, repos *badger.MemoryRepositories, n int) []*core.Fragment {
	t.Helper()
	fragments := make([]*core.Fragment, n)
	for i := range fragments {
		fragments[i] = &core.Fragment{Text: fmt.Sprintf("fragment number %d", i)}
	}
	added, err := repos.Fragments.AddFragments(context.Background(), fragments...)
	require.NoError(t, err)
	require.Len(t, added, n)
	return added
}
