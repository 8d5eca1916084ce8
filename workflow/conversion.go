package workflow

import (
	"context"
	"errors"

	"github.com/seedleaf/store_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ConversionOutcome string

const (
	ConversionRecorded    ConversionOutcome = "recorded"
	ConversionDuplicate   ConversionOutcome = "duplicate"
	ConversionNoAffiliate ConversionOutcome = "no_affiliate"
)

type ConversionInput struct {
	AffiliateCode string
	SessionId     string
	OrderId       string
	OrderSubtotal decimal.Decimal
}

// ComputeCommission applies the affiliate's current tier rate to the order
// subtotal, rounded to cents.
func ComputeCommission(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Round(2)
}

// RecordConversion persists one commission accrual for the order. An unknown
// or inactive affiliate code is not an error: the attribution is simply
// dropped and reported as ConversionNoAffiliate. The unique index on
// order_id turns a second call for the same order into ConversionDuplicate.
func (s *Store) RecordConversion(ctx context.Context, in ConversionInput) (ConversionOutcome, error) {
	db, err := s.db()
	if err != nil {
		return "", err
	}

	var aff models.Affiliate
	err = db.WithContext(ctx).
		Where("code = ? AND status = ?", in.AffiliateCode, models.AffiliateStatusActive).
		Take(&aff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ConversionNoAffiliate, nil
	}
	if err != nil {
		return "", err
	}

	conv := models.AffiliateConversion{
		AffiliateCode: aff.Code,
		OrderId:       in.OrderId,
		SessionId:     in.SessionId,
		OrderSubtotal: in.OrderSubtotal,
		Commission:    ComputeCommission(in.OrderSubtotal, aff.TierRate),
		Status:        models.ConversionStatusPending,
	}
	if err := db.WithContext(ctx).Create(&conv).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return ConversionDuplicate, nil
		}
		return "", err
	}
	return ConversionRecorded, nil
}
