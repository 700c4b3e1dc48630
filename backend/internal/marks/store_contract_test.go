package marks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marksboard/backend/internal/marks"
	"marksboard/backend/internal/shared"
)

// runStoreContract exercises the behaviour every Store implementation must share.
// The store must be empty when called.
func runStoreContract(t *testing.T, store marks.Store) {
	ctx := context.Background()

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "EnsureSchema must be idempotent")
	require.NoError(t, store.Ping(ctx))

	t.Run("Find Missing", func(t *testing.T) {
		_, err := store.Find(ctx, "2023111001", "History")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("Upsert Inserts Then Overwrites", func(t *testing.T) {
		first, err := store.Upsert(ctx, shared.MarkRecord{RollNumber: "2023111001", Subject: "History", TAName: "Aadi", Marks: 10})
		require.NoError(t, err)
		assert.Equal(t, "Aadi", first.TAName)
		assert.Equal(t, 10.0, first.Marks)
		assert.False(t, first.CreatedAt.IsZero())

		second, err := store.Upsert(ctx, shared.MarkRecord{RollNumber: "2023111001", Subject: "History", TAName: "Kriti", Marks: 22.5})
		require.NoError(t, err)
		assert.Equal(t, "Kriti", second.TAName)
		assert.Equal(t, 22.5, second.Marks)
		assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "createdAt must be set once")

		found, err := store.Find(ctx, "2023111001", "History")
		require.NoError(t, err)
		assert.Equal(t, 22.5, found.Marks)

		all, err := store.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Aggregations", func(t *testing.T) {
		seed := []shared.MarkRecord{
			{RollNumber: "2023111002", Subject: "History", TAName: "Kriti", Marks: 20},
			{RollNumber: "2023101003", Subject: "History", TAName: "Aadi", Marks: 20},
			{RollNumber: "2023101003", Subject: "Economics", TAName: "Rohan", Marks: 15.25},
			{RollNumber: "2023102004", Subject: "Economics", TAName: "Rohan", Marks: 0},
		}
		for _, rec := range seed {
			_, err := store.Upsert(ctx, rec)
			require.NoError(t, err)
		}

		avgs, err := store.AverageByTA(ctx)
		require.NoError(t, err)
		require.Len(t, avgs, 3)

		assert.Equal(t, "Economics", avgs[0].Subject)
		assert.Equal(t, "Rohan", avgs[0].TAName)
		assert.InDelta(t, 7.625, avgs[0].AverageMarks, 1e-9)
		assert.Equal(t, 2, avgs[0].Count)

		assert.Equal(t, "History", avgs[1].Subject)
		assert.Equal(t, "Aadi", avgs[1].TAName)
		assert.InDelta(t, 20.0, avgs[1].AverageMarks, 1e-9)
		assert.Equal(t, 1, avgs[1].Count)

		assert.Equal(t, "History", avgs[2].Subject)
		assert.Equal(t, "Kriti", avgs[2].TAName)
		assert.InDelta(t, 21.25, avgs[2].AverageMarks, 1e-9)
		assert.Equal(t, 2, avgs[2].Count)

		dist, err := store.Distribution(ctx)
		require.NoError(t, err)
		assert.Equal(t, []shared.MarkCount{
			{Subject: "Economics", Marks: 0, Count: 1},
			{Subject: "Economics", Marks: 15.25, Count: 1},
			{Subject: "History", Marks: 20, Count: 2},
			{Subject: "History", Marks: 22.5, Count: 1},
		}, dist)

		all, err := store.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, marks.NewMemoryStore())
}
