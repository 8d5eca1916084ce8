package workflow

import (
	"context"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/seedleaf/store_backend/config"
	"github.com/seedleaf/store_backend/models"
	"gorm.io/gorm"
)

const (
	processedKeyPrefix = "pay:evt:"
	processedCacheTTL  = 7 * 24 * time.Hour
)

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// HasProcessed consults the idempotency ledger. Redis is only a fast path:
// its errors are swallowed and the ProcessingRecord table stays the source
// of truth. A DB error here is a hard failure; with the ledger unreadable
// we cannot safely claim the event is new.
func (s *Store) HasProcessed(ctx context.Context, eventId string) (bool, error) {
	if val, ok, err := config.GetRedisValue(processedKeyPrefix + eventId); err == nil && ok && val == "1" {
		return true, nil
	}

	db, err := s.db()
	if err != nil {
		return false, err
	}

	var rec models.ProcessingRecord
	if err := db.WithContext(ctx).Where("event_id = ?", eventId).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	// Backfill the cache so the next duplicate skips the DB round trip.
	_ = config.SetRedisValue(processedKeyPrefix+eventId, "1", processedCacheTTL)
	return true, nil
}

// MarkProcessed writes the ledger row. A duplicate-key error means another
// delivery already marked it, which is fine. The caller treats any other
// error as non-fatal: the worst case of a lost ledger write is one harmless
// re-run absorbed by the transition guard.
func (s *Store) MarkProcessed(ctx context.Context, eventId string, eventType string) error {
	db, err := s.db()
	if err != nil {
		return err
	}

	rec := models.ProcessingRecord{
		EventId:   eventId,
		Action:    models.ActionPaymentProcessed,
		EventType: eventType,
	}
	if err := db.WithContext(ctx).Create(&rec).Error; err != nil && !isDuplicateKeyErr(err) {
		return err
	}
	_ = config.SetRedisValue(processedKeyPrefix+eventId, "1", processedCacheTTL)
	return nil
}
