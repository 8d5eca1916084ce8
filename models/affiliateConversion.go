package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AffiliateConversion is one commission accrual. At most one row per order:
// the unique index on order_id is the last line of defence against duplicate
// deliveries racing past the transition guard.
type AffiliateConversion struct {
	ID            int              `gorm:"primary_key" json:"id"`
	AffiliateCode string           `gorm:"size:32;index;not null" json:"affiliate_code"`
	OrderId       string           `gorm:"size:64;not null;uniqueIndex" json:"order_id"`
	SessionId     string           `gorm:"size:64" json:"session_id"`
	OrderSubtotal decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"order_subtotal"`
	Commission    decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"commission"`
	Status        ConversionStatus `gorm:"type:enum('pending','approved');not null;default:'pending'" json:"status"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
}
