package deletionvector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nbiscaro/pg-mooncake/lake"
)

func TestManagerApplyAndFetch(t *testing.T) {
	ctx := context.Background()
	ml := lake.NewMemoryLake()
	m := NewManager(1, ml)

	bm, err := m.FetchDV(ctx, "f1.parquet", 0, "")
	require.NoError(t, err)
	require.True(t, bm.IsEmpty(), "expected empty bitmap before any delete")

	deletes := map[string]map[int64][]uint32{
		"f1.parquet": {
			0: {3, 7},
			1: {10},
		},
	}
	require.NoError(t, m.ApplyDeletionVectors(ctx, "", deletes))

	bm0, err := m.FetchDV(ctx, "f1.parquet", 0, "")
	require.NoError(t, err)
	require.True(t, bm0.IsDeleted(3))
	require.True(t, bm0.IsDeleted(7))
	require.False(t, bm0.IsDeleted(4))

	bm1, err := m.FetchDV(ctx, "f1.parquet", 1, "")
	require.NoError(t, err)
	require.True(t, bm1.IsDeleted(10))
}

func TestManagerMergeAcrossCalls(t *testing.T) {
	ctx := context.Background()
	ml := lake.NewMemoryLake()
	m := NewManager(1, ml)

	require.NoError(t, m.ApplyDeletionVectors(ctx, "", map[string]map[int64][]uint32{
		"f1.parquet": {0: {1}},
	}))
	require.NoError(t, m.ApplyDeletionVectors(ctx, "", map[string]map[int64][]uint32{
		"f1.parquet": {0: {2}},
	}))

	bm, err := m.FetchDV(ctx, "f1.parquet", 0, "")
	require.NoError(t, err)
	require.True(t, bm.IsDeleted(1))
	require.True(t, bm.IsDeleted(2))
	require.EqualValues(t, 2, bm.Cardinality())
}

func TestManagerDeleteOfAlreadyDeletedRowIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ml := lake.NewMemoryLake()
	m := NewManager(1, ml)

	deletes := map[string]map[int64][]uint32{"f1.parquet": {0: {5}}}
	require.NoError(t, m.ApplyDeletionVectors(ctx, "", deletes))
	require.NoError(t, m.ApplyDeletionVectors(ctx, "", deletes))

	bm, err := m.FetchDV(ctx, "f1.parquet", 0, "")
	require.NoError(t, err)
	require.True(t, bm.IsDeleted(5))
	require.EqualValues(t, 1, bm.Cardinality())
}
