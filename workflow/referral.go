package workflow

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"

	"github.com/seedleaf/store_backend/models"
	"gorm.io/gorm"
)

const referralCodePrefix = "ref_"

// referral codes are trust-adjacent: a guessable code invites self-referral
// fraud, so the source of randomness must be crypto/rand, never math/rand.
var referralEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func GenerateReferralCode() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return referralCodePrefix + strings.ToLower(referralEncoding.EncodeToString(buf)), nil
}

// ShouldIssueReferral is the first-purchase rule: a code is issued only when
// the customer's completed-order count is exactly one at transition time.
// The count already includes the order that just went PAID.
func ShouldIssueReferral(completedOrders int64) bool {
	return completedOrders == 1
}

// MaybeIssueReferralCode issues the customer's one-time referral code on
// their first completed order. Returns nil without error when no code is
// due. Safe to call more than once per order: an existing row for the order
// short-circuits.
func (s *Store) MaybeIssueReferralCode(ctx context.Context, orderId string, customerId string) (*models.Referral, error) {
	if customerId == "" {
		return nil, nil
	}
	db, err := s.db()
	if err != nil {
		return nil, err
	}

	var existing models.Referral
	err = db.WithContext(ctx).Where("order_id = ?", orderId).Take(&existing).Error
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var completed int64
	if err := db.WithContext(ctx).Model(&models.Order{}).
		Where("customer_id = ? AND status = ?", customerId, models.OrderStatusPaid).
		Count(&completed).Error; err != nil {
		return nil, err
	}
	if !ShouldIssueReferral(completed) {
		return nil, nil
	}

	// Retry a couple of times on the (vanishingly unlikely) code collision.
	for attempt := 0; attempt < 3; attempt++ {
		code, err := GenerateReferralCode()
		if err != nil {
			return nil, err
		}
		ref := models.Referral{
			Code:       code,
			OrderId:    orderId,
			ReferrerId: customerId,
		}
		if err := db.WithContext(ctx).Create(&ref).Error; err != nil {
			if isDuplicateKeyErr(err) {
				continue
			}
			return nil, err
		}
		return &ref, nil
	}
	return nil, errors.New("could not issue a unique referral code")
}
