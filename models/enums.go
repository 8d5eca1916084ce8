package models

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further status transition may be applied.
// PAID and CANCELLED are final: duplicate or late deliveries that reference
// an order in either state must be absorbed as no-ops.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

type AffiliateStatus string

const (
	AffiliateStatusActive   AffiliateStatus = "active"
	AffiliateStatusInactive AffiliateStatus = "inactive"
)

type ConversionStatus string

const (
	ConversionStatusPending  ConversionStatus = "pending"
	ConversionStatusApproved ConversionStatus = "approved"
)

type EmailStatus string

const (
	EmailStatusSent   EmailStatus = "sent"
	EmailStatusFailed EmailStatus = "failed"
)

// ActionPaymentProcessed is the single action tag the idempotency ledger
// records for this pipeline.
const ActionPaymentProcessed = "payment_processed"
