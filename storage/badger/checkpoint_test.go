package badger

import (
	"context"
	"testing"

	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRepository(t *testing.T) {
	repos := setupRepos(t)
	checkpoints := repos.Checkpoints
	ctx := context.Background()

	loaded, err := checkpoints.LoadCheckpoint(ctx, "reanalyze")
	require.NoError(t, err)
	assert.Nil(t, loaded, "missing checkpoint is nil without error")

	checkpoint := &core.Checkpoint{ProcessorType: "reanalyze", LastID: core.ID(17)}
	require.NoError(t, checkpoints.SaveCheckpoint(ctx, checkpoint))
	assert.False(t, checkpoint.UpdatedAt.IsZero())

	loaded, err = checkpoints.LoadCheckpoint(ctx, "reanalyze")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, core.ID(17), loaded.LastID)

	require.NoError(t, checkpoints.DeleteCheckpoint(ctx, "reanalyze"))
	loaded, err = checkpoints.LoadCheckpoint(ctx, "reanalyze")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	assert.ErrorIs(t, checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{}), storage.ErrInvalidQuery)
}

func TestCheckpointDoesNotLeakIntoFragments(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{ProcessorType: "frag", LastID: 1}))

	count, err := repos.Fragments.CountFragments(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	page, err := repos.Fragments.GetFragmentsAfterID(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}
