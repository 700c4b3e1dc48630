package marks

import (
	"context"

	"marksboard/backend/internal/shared"
)

// Store persists MarkRecords with a unique (rollNumber, subject) key.
//
// Errors wrap shared.ErrStoreUnavailable for infrastructure failures,
// shared.ErrConflict when a first insert loses a uniqueness race and
// shared.ErrNotFound from Find.
type Store interface {
	// Upsert overwrites taName and marks for an existing key, or inserts a new
	// record stamped with createdAt. It returns the stored record.
	Upsert(ctx context.Context, rec shared.MarkRecord) (*shared.MarkRecord, error)
	Find(ctx context.Context, rollNumber, subject string) (*shared.MarkRecord, error)

	// Aggregations. Averages are returned unrounded.
	AverageByTA(ctx context.Context) ([]shared.TAAverage, error)
	Distribution(ctx context.Context) ([]shared.MarkCount, error)
	All(ctx context.Context) ([]shared.MarkRecord, error)

	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
}
