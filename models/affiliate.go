package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Affiliate is a partner in the referral program. TierRate is the partner's
// current commission rate (maintained by the partner-management screens, read
// here at conversion time). Activation happens when the partner's starter-kit
// checkout completes; ActivatedAt doubles as the activation guard.
type Affiliate struct {
	ID                string          `gorm:"primary_key;size:64" json:"id"`
	Code              string          `gorm:"size:32;not null;uniqueIndex" json:"code"`
	Email             string          `gorm:"size:255" json:"email"`
	Name              string          `gorm:"size:255" json:"name"`
	Status            AffiliateStatus `gorm:"type:enum('active','inactive');not null;default:'inactive'" json:"status"`
	TierRate          decimal.Decimal `gorm:"type:decimal(6,4);default:0" json:"tier_rate"`
	ActivatedAt       *time.Time      `json:"activated_at"`
	StarterKitOrderId string          `gorm:"size:64" json:"starter_kit_order_id"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
