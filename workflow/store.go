package workflow

import (
	"errors"

	"github.com/seedleaf/store_backend/config"
	"gorm.io/gorm"
)

// ErrDatabaseNotReady is returned while the global DB connection is still
// being established. Callers must treat it as a hard failure so the provider
// retries the delivery later.
var ErrDatabaseNotReady = errors.New("database not ready")

// Store bundles the persistence operations the webhook pipeline needs.
// With a nil DB it falls back to the lazily-connected global from config,
// which lets the HTTP server start before the database is up.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) db() (*gorm.DB, error) {
	if s.DB != nil {
		return s.DB, nil
	}
	if db := config.GetDB(); db != nil {
		return db, nil
	}
	return nil, ErrDatabaseNotReady
}
