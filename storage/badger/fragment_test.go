package badger

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepos(t *testing.T) *MemoryRepositories {
	t.Helper()
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func addTexts(t *testing.T, repo storage.FragmentRepository, texts ...string) []*core.Fragment {
	t.Helper()
	var added []*core.Fragment
	for _, text := range texts {
		out, err := repo.AddFragments(context.Background(), &core.Fragment{Text: text})
		require.NoError(t, err)
		added = append(added, out...)
	}
	return added
}

func TestFragmentBasics(t *testing.T) {
	repo := setupRepos(t).Fragments
	ctx := context.Background()

	added, err := repo.AddFragments(ctx, &core.Fragment{
		Text:     "the night is cold",
		Metadata: map[string]string{"source": "notebook"},
	})
	require.NoError(t, err)
	require.Len(t, added, 1)

	fragment := added[0]
	assert.NotZero(t, fragment.Id)
	assert.Equal(t, core.Fingerprint("the night is cold"), fragment.Fingerprint)
	assert.False(t, fragment.InsertedAt.IsZero())
	assert.Equal(t, fragment.InsertedAt, fragment.UpdatedAt)

	retrieved, err := repo.GetFragment(ctx, fragment.Id)
	require.NoError(t, err)
	assert.Equal(t, "the night is cold", retrieved.Text)
	assert.Equal(t, "notebook", retrieved.Metadata["source"])
	assert.False(t, retrieved.Analyzed())

	_, err = repo.GetFragment(ctx, core.ID(9999))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAddFragments_Validation(t *testing.T) {
	repo := setupRepos(t).Fragments

	_, err := repo.AddFragments(context.Background(), &core.Fragment{Text: "   "})
	assert.ErrorIs(t, err, core.ErrInvalidFragment)
}

func TestAddFragments_Duplicates(t *testing.T) {
	repo := setupRepos(t).Fragments
	ctx := context.Background()

	addTexts(t, repo, "Hold fast to dreams")

	t.Run("normalized text collides", func(t *testing.T) {
		_, err := repo.AddFragments(ctx, &core.Fragment{Text: "  hold FAST to\tdreams "})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("repeat within one call fails the call", func(t *testing.T) {
		_, err := repo.AddFragments(ctx,
			&core.Fragment{Text: "for if dreams die"},
			&core.Fragment{Text: "For if dreams die"},
		)
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)

		count, err := repo.CountFragments(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "failed call must not persist anything")
	})

	t.Run("failed call leaves fragments unchanged", func(t *testing.T) {
		first := &core.Fragment{Text: "life is a broken-winged bird", Metadata: map[string]string{"src": "a"}}
		second := &core.Fragment{Text: "Life is a broken-winged bird"}

		_, err := repo.AddFragments(ctx, first, second)
		require.ErrorIs(t, err, storage.ErrDuplicateKey)

		for _, f := range []*core.Fragment{first, second} {
			assert.Zero(t, f.Id)
			assert.Zero(t, f.Fingerprint)
			assert.True(t, f.InsertedAt.IsZero())
			assert.True(t, f.UpdatedAt.IsZero())
		}
		assert.Equal(t, map[string]string{"src": "a"}, first.Metadata)

		// The same fragment can be stored once the conflict is gone.
		out, err := repo.AddFragments(ctx, first)
		require.NoError(t, err)
		assert.NotZero(t, out[0].Id)
	})
}

func TestFindByFingerprint(t *testing.T) {
	repo := setupRepos(t).Fragments
	ctx := context.Background()

	added := addTexts(t, repo, "life is a broken-winged bird")

	found, err := repo.FindByFingerprint(ctx, core.Fingerprint("Life is a broken-winged   bird"))
	require.NoError(t, err)
	assert.Equal(t, added[0].Id, found.Id)

	_, err = repo.FindByFingerprint(ctx, core.Fingerprint("that cannot fly"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListAndRecentFragments(t *testing.T) {
	repo := setupRepos(t).Fragments
	ctx := context.Background()

	added := addTexts(t, repo, "first line", "second line", "third line")

	all, err := repo.ListFragments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, added[2].Id, all[0].Id, "most recent first")
	assert.Equal(t, added[1].Id, all[1].Id)
	assert.Equal(t, added[0].Id, all[2].Id)

	recent, err := repo.GetRecentFragments(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, added[2].Id, recent[0].Id)
	assert.Equal(t, added[1].Id, recent[1].Id)

	_, err = repo.GetRecentFragments(ctx, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestListFragments_Empty(t *testing.T) {
	repo := setupRepos(t).Fragments

	all, err := repo.ListFragments(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestGetFragmentsAfterID(t *testing.T) {
	repo := setupRepos(t).Fragments
	ctx := context.Background()

	added := addTexts(t, repo, "one", "two", "three", "four", "five")

	page, err := repo.GetFragmentsAfterID(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, added[0].Id, page[0].Id)
	assert.Equal(t, added[1].Id, page[1].Id)

	page, err = repo.GetFragmentsAfterID(ctx, added[1].Id, 10)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, added[2].Id, page[0].Id)
	assert.Equal(t, added[4].Id, page[2].Id)

	page, err = repo.GetFragmentsAfterID(ctx, added[4].Id, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestUpdateFragments(t *testing.T) {
	repo := setupRepos(t).Fragments
	ctx := context.Background()

	added := addTexts(t, repo, "a raisin in the sun", "does it dry up")
	original := added[0]

	t.Run("attach analysis", func(t *testing.T) {
		update := *original
		update.Analysis = &core.Analysis{
			Themes:        []string{"deferral"},
			RhymePatterns: []string{"isin", "the", "sun"},
			Mood:          "uneasy",
			ImageryTags:   []string{"sun"},
		}
		_, err := repo.UpdateFragments(ctx, &update)
		require.NoError(t, err)

		retrieved, err := repo.GetFragment(ctx, original.Id)
		require.NoError(t, err)
		require.True(t, retrieved.Analyzed())
		assert.Equal(t, "uneasy", retrieved.Analysis.Mood)
		assert.True(t, retrieved.InsertedAt.Equal(original.InsertedAt))
		assert.False(t, retrieved.UpdatedAt.Before(original.UpdatedAt))
	})

	t.Run("text change moves fingerprint", func(t *testing.T) {
		update, err := repo.GetFragment(ctx, original.Id)
		require.NoError(t, err)
		update.Text = "or fester like a sore"
		_, err = repo.UpdateFragments(ctx, update)
		require.NoError(t, err)

		_, err = repo.FindByFingerprint(ctx, core.Fingerprint("a raisin in the sun"))
		assert.ErrorIs(t, err, storage.ErrNotFound)
		found, err := repo.FindByFingerprint(ctx, core.Fingerprint("or fester like a sore"))
		require.NoError(t, err)
		assert.Equal(t, original.Id, found.Id)
	})

	t.Run("text change into existing text", func(t *testing.T) {
		update, err := repo.GetFragment(ctx, original.Id)
		require.NoError(t, err)
		update.Text = "Does it dry up"
		_, err = repo.UpdateFragments(ctx, update)
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("missing fragment", func(t *testing.T) {
		_, err := repo.UpdateFragments(ctx, &core.Fragment{Id: core.ID(9999), Text: "ghost"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestDeleteFragments(t *testing.T) {
	repo := setupRepos(t).Fragments
	ctx := context.Background()

	added := addTexts(t, repo, "keep me", "delete me")

	require.NoError(t, repo.DeleteFragments(ctx, added[1].Id))

	_, err := repo.GetFragment(ctx, added[1].Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.FindByFingerprint(ctx, added[1].Fingerprint)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	all, err := repo.ListFragments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, added[0].Id, all[0].Id)

	// Text is free to be added again.
	addTexts(t, repo, "delete me")

	err = repo.DeleteFragments(ctx, core.ID(9999))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetFragments_Multiple(t *testing.T) {
	repo := setupRepos(t).Fragments
	ctx := context.Background()

	added := addTexts(t, repo, "alpha", "beta")

	fragments, err := repo.GetFragments(ctx, added[1].Id, core.ID(9999), added[0].Id)
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	assert.Equal(t, added[1].Id, fragments[0].Id)
	assert.Equal(t, added[0].Id, fragments[1].Id)
}

func TestAddFragments_Concurrent(t *testing.T) {
	repo := setupRepos(t).Fragments
	ctx := context.Background()

	texts := []string{"uno", "dos", "tres", "cuatro", "cinco", "seis", "siete", "ocho"}
	var wg sync.WaitGroup
	for _, text := range texts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddFragments(ctx, &core.Fragment{Text: text})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := repo.CountFragments(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(texts), count)

	seen := make(map[core.ID]bool)
	all, err := repo.ListFragments(ctx)
	require.NoError(t, err)
	for _, f := range all {
		assert.False(t, seen[f.Id], "ids are unique")
		seen[f.Id] = true
	}
}
