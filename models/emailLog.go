package models

import "time"

// EmailLog records every notification attempt, sent or failed. Besides audit,
// it gates re-sends: a 'sent' row for (order_id, template) means the customer
// already got that email, even if the event-level ledger write was lost.
type EmailLog struct {
	ID           int         `gorm:"primary_key" json:"id"`
	OrderId      string      `gorm:"size:64;index" json:"order_id"`
	Template     string      `gorm:"size:50;index;not null" json:"template"`
	Recipient    string      `gorm:"size:255;not null" json:"recipient"`
	Subject      string      `gorm:"size:255" json:"subject"`
	Body         string      `gorm:"type:text" json:"body"`
	Status       EmailStatus `gorm:"type:enum('sent','failed');not null" json:"status"`
	ErrorMessage *string     `gorm:"type:text" json:"error_message"`
	Attempts     int         `gorm:"default:1" json:"attempts"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}
