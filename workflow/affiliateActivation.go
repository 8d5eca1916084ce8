package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/seedleaf/store_backend/models"
	"gorm.io/gorm"
)

var ErrAffiliateNotFound = errors.New("affiliate not found")

// ActivateAffiliate flips a partner to active when their starter-kit
// checkout completes. Activation has no status machine of its own, so the
// guard is the conditional write on activated_at IS NULL: re-processing the
// same checkout session reports activatedNow=false and the caller skips the
// activation email.
func (s *Store) ActivateAffiliate(ctx context.Context, affiliateId string, starterKitOrderId string) (aff *models.Affiliate, activatedNow bool, err error) {
	db, err := s.db()
	if err != nil {
		return nil, false, err
	}

	var affiliate models.Affiliate
	if err := db.WithContext(ctx).Where("id = ?", affiliateId).Take(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrAffiliateNotFound
		}
		return nil, false, err
	}
	if affiliate.ActivatedAt != nil {
		return &affiliate, false, nil
	}

	now := time.Now().UTC()
	tx := db.WithContext(ctx).Model(&models.Affiliate{}).
		Where("id = ? AND activated_at IS NULL", affiliateId).
		Updates(map[string]interface{}{
			"status":               models.AffiliateStatusActive,
			"activated_at":         &now,
			"starter_kit_order_id": starterKitOrderId,
		})
	if tx.Error != nil {
		return nil, false, tx.Error
	}
	if tx.RowsAffected == 0 {
		// Another delivery activated in between.
		if err := db.WithContext(ctx).Where("id = ?", affiliateId).Take(&affiliate).Error; err != nil {
			return nil, false, err
		}
		return &affiliate, false, nil
	}

	affiliate.Status = models.AffiliateStatusActive
	affiliate.ActivatedAt = &now
	affiliate.StarterKitOrderId = starterKitOrderId
	return &affiliate, true, nil
}
