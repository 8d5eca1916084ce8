package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RetailerOrder is a wholesale order placed by a stockist. Same lifecycle as
// Order, separate table because the upstream checkout flow and downstream
// fulfilment differ.
type RetailerOrder struct {
	ID            string          `gorm:"primary_key;size:64" json:"id"`
	RetailerId    string          `gorm:"index;size:64" json:"retailer_id"`
	CompanyName   string          `gorm:"size:255" json:"company_name"`
	ContactEmail  string          `gorm:"size:255" json:"contact_email"`
	Status        OrderStatus     `gorm:"type:enum('PENDING','PAID','CANCELLED');not null;default:'PENDING'" json:"status"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
