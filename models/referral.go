package models

import "time"

// Referral is the one-time share code issued to a customer on their first
// completed order. Immutable after creation.
type Referral struct {
	ID         int       `gorm:"primary_key" json:"id"`
	Code       string    `gorm:"size:32;not null;uniqueIndex" json:"code"`
	OrderId    string    `gorm:"size:64;not null;uniqueIndex" json:"order_id"`
	ReferrerId string    `gorm:"size:64;index;not null" json:"referrer_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
