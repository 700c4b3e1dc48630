package marks

import (
	"context"
	"fmt"

	"marksboard/backend/internal/shared"
)

// Open connects the store selected by cfg.StoreDriver and ensures its
// schema. The returned func releases the connection.
func Open(ctx context.Context, cfg *shared.ServiceConfig) (Store, func() error, error) {
	var (
		store   Store
		closeFn func() error
	)

	switch cfg.StoreDriver {
	case shared.StoreDriverMongo:
		client, db, err := shared.ConnectMongoDB(&cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		store = NewMongoStore(db)
		closeFn = func() error { return shared.DisconnectMongoDB(client) }

	case shared.StoreDriverPostgres:
		db, err := shared.ConnectPostgres(&cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store = NewPostgresStore(db)
		closeFn = func() error { return shared.ClosePostgres(db) }

	case shared.StoreDriverMemory:
		store = NewMemoryStore()
		closeFn = func() error { return nil }

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	if err := store.EnsureSchema(ctx); err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("ensure %s schema: %w", cfg.StoreDriver, err)
	}

	return store, closeFn, nil
}
