package workflow

import (
	"context"
	"errors"

	"github.com/seedleaf/store_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransitionOutcome string

const (
	TransitionApplied         TransitionOutcome = "applied"
	TransitionAlreadyTerminal TransitionOutcome = "already_terminal"
	TransitionNotFound        TransitionOutcome = "not_found"
)

// TransitionResult carries the outcome plus the order snapshot the caller
// needs for side effects (emails, conversion, referral) without re-reading.
type TransitionResult struct {
	Outcome       TransitionOutcome
	OrderId       string
	CustomerId    string
	CustomerEmail string
	Amount        decimal.Decimal
	Subtotal      decimal.Decimal
	Previous      models.OrderStatus
}

// CanTransition is the monotonicity rule: a terminal status is never
// overwritten, and the only targets this pipeline writes are the terminal
// ones.
func CanTransition(current, target models.OrderStatus) bool {
	if current.Terminal() {
		return false
	}
	return target.Terminal()
}

// TransitionConsumerOrder moves a consumer order to target with a
// read-compare-conditionally-write guard. The WHERE on the previous status
// makes the write an optimistic-concurrency check: if a concurrent delivery
// won the race, RowsAffected is 0 and we report AlreadyTerminal instead of
// clobbering.
func (s *Store) TransitionConsumerOrder(ctx context.Context, orderId string, target models.OrderStatus) (TransitionResult, error) {
	db, err := s.db()
	if err != nil {
		return TransitionResult{}, err
	}

	var order models.Order
	if err := db.WithContext(ctx).Where("id = ?", orderId).Take(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TransitionResult{Outcome: TransitionNotFound, OrderId: orderId}, nil
		}
		return TransitionResult{}, err
	}

	res := TransitionResult{
		OrderId:       order.ID,
		CustomerId:    order.CustomerId,
		CustomerEmail: order.CustomerEmail,
		Amount:        order.Amount,
		Subtotal:      order.Subtotal,
		Previous:      order.Status,
	}
	if !CanTransition(order.Status, target) {
		res.Outcome = TransitionAlreadyTerminal
		return res, nil
	}

	tx := db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderId, order.Status).
		Update("status", target)
	if tx.Error != nil {
		return TransitionResult{}, tx.Error
	}
	if tx.RowsAffected == 0 {
		// Lost the race to another delivery; the row is terminal now.
		res.Outcome = TransitionAlreadyTerminal
		return res, nil
	}
	res.Outcome = TransitionApplied
	return res, nil
}

// TransitionRetailerOrder is the wholesale-order twin of
// TransitionConsumerOrder.
func (s *Store) TransitionRetailerOrder(ctx context.Context, orderId string, target models.OrderStatus) (TransitionResult, error) {
	db, err := s.db()
	if err != nil {
		return TransitionResult{}, err
	}

	var order models.RetailerOrder
	if err := db.WithContext(ctx).Where("id = ?", orderId).Take(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TransitionResult{Outcome: TransitionNotFound, OrderId: orderId}, nil
		}
		return TransitionResult{}, err
	}

	res := TransitionResult{
		OrderId:       order.ID,
		CustomerId:    order.RetailerId,
		CustomerEmail: order.ContactEmail,
		Amount:        order.Amount,
		Subtotal:      order.Subtotal,
		Previous:      order.Status,
	}
	if !CanTransition(order.Status, target) {
		res.Outcome = TransitionAlreadyTerminal
		return res, nil
	}

	tx := db.WithContext(ctx).Model(&models.RetailerOrder{}).
		Where("id = ? AND status = ?", orderId, order.Status).
		Update("status", target)
	if tx.Error != nil {
		return TransitionResult{}, tx.Error
	}
	if tx.RowsAffected == 0 {
		res.Outcome = TransitionAlreadyTerminal
		return res, nil
	}
	res.Outcome = TransitionApplied
	return res, nil
}
