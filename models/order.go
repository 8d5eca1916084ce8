package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a consumer storefront order. Rows are created at checkout
// initiation by the storefront; this service only ever moves Status forward
// (PENDING -> PAID / CANCELLED) and never deletes.
type Order struct {
	ID            string          `gorm:"primary_key;size:64" json:"id"`
	CustomerId    string          `gorm:"index;size:64" json:"customer_id"`
	CustomerEmail string          `gorm:"size:255" json:"customer_email"`
	Status        OrderStatus     `gorm:"type:enum('PENDING','PAID','CANCELLED');not null;default:'PENDING'" json:"status"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
