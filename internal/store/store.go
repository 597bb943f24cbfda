// Package store persists case records. The in-memory store serves tests and
// single-process runs; the Postgres store is used in deployment.
package store

import (
	"context"
	"errors"
	"fmt"

	"casemap/internal/config"
	"casemap/internal/models"
)

// Store errors.
var (
	// ErrStorage wraps every failure of the underlying store.
	ErrStorage = errors.New("storage fault")
	// ErrConflict marks an insert rejected by the title/url uniqueness rule.
	ErrConflict = errors.New("unique constraint violated")
	// ErrNotFound is returned when a row id does not exist.
	ErrNotFound = errors.New("case not found")
)

// Store is the persistence port used by ingestion, correction and the API.
type Store interface {
	// FindByTitleOrURL returns a row whose title equals title or whose url
	// equals url, or nil when there is none. Empty arguments never match.
	FindByTitleOrURL(ctx context.Context, title, url string) (*models.CaseRecord, error)
	// Insert stores rec and returns the assigned id.
	Insert(ctx context.Context, rec *models.CaseRecord) (int64, error)
	// UpdateGeography replaces state and region of one row in one write.
	UpdateGeography(ctx context.Context, id int64, geo models.Geography) error
	ListAll(ctx context.Context) ([]models.CaseRecord, error)
	ListByState(ctx context.Context, state string) ([]models.CaseRecord, error)
}

// Open builds the store selected by cfg. The returned close function releases
// its resources.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return NewMemoryStore(), func() {}, nil
	case config.DriverPostgres:
		pg, err := NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}

		return pg, pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown driver %q", ErrStorage, cfg.Driver)
	}
}
