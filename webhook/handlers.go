package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/seedleaf/store_backend/models"
	"github.com/seedleaf/store_backend/workflow"
	"github.com/sirupsen/logrus"
)

// Handlers return an error only for hard failures (persistence unavailable
// or failing mid-transition). Referential misses, malformed attribution and
// email failures are soft: logged, branch aborted, webhook still acked.

func handleConsumerCompleted(ctx context.Context, p *Pipeline, evt *PaymentEvent) error {
	session := evt.Data.Object
	meta := session.Metadata
	if meta.OrderId == "" {
		p.softFailure(ctx, evt, "consumer checkout without order_id metadata")
		return nil
	}

	res, err := p.Orders.TransitionConsumerOrder(ctx, meta.OrderId, models.OrderStatusPaid)
	if err != nil {
		return fmt.Errorf("transition order %s to PAID: %w", meta.OrderId, err)
	}
	switch res.Outcome {
	case workflow.TransitionNotFound:
		p.softFailure(ctx, evt, "order "+meta.OrderId+" not found")
		return nil
	case workflow.TransitionAlreadyTerminal:
		p.log(ctx).WithFields(logrus.Fields{
			"event_id": evt.ID,
			"order_id": meta.OrderId,
			"status":   res.Previous,
		}).Info("order already terminal; transition skipped")
		return nil
	}

	// The transition is committed. From here on nothing may fail the
	// webhook: a 5xx now would make the provider re-deliver against an
	// already-settled order.
	p.recordAttribution(ctx, evt, res)
	p.issueReferral(ctx, evt, meta.OrderId, res.CustomerId)

	recipient := res.CustomerEmail
	if recipient == "" {
		recipient = session.CustomerEmail
	}
	p.bestEffort(ctx, evt, "thank-you email", func() error {
		return p.Notifier.SendThankYouEmail(ctx, meta.OrderId, recipient, res.Amount)
	})
	p.bestEffort(ctx, evt, "admin notification", func() error {
		subject := "Order paid: " + meta.OrderId
		body := fmt.Sprintf("Order %s was paid (%s). Customer: %s", meta.OrderId, res.Amount.StringFixed(2), recipient)
		return p.Notifier.SendAdminNotification(ctx, subject, body)
	})
	return nil
}

func handleRetailerCompleted(ctx context.Context, p *Pipeline, evt *PaymentEvent) error {
	session := evt.Data.Object
	meta := session.Metadata
	if meta.OrderId == "" {
		p.softFailure(ctx, evt, "retailer checkout without order_id metadata")
		return nil
	}

	res, err := p.Orders.TransitionRetailerOrder(ctx, meta.OrderId, models.OrderStatusPaid)
	if err != nil {
		return fmt.Errorf("transition retailer order %s to PAID: %w", meta.OrderId, err)
	}
	switch res.Outcome {
	case workflow.TransitionNotFound:
		p.softFailure(ctx, evt, "retailer order "+meta.OrderId+" not found")
		return nil
	case workflow.TransitionAlreadyTerminal:
		p.log(ctx).WithFields(logrus.Fields{
			"event_id": evt.ID,
			"order_id": meta.OrderId,
			"status":   res.Previous,
		}).Info("retailer order already terminal; transition skipped")
		return nil
	}

	p.recordAttribution(ctx, evt, res)

	recipient := res.CustomerEmail
	if recipient == "" {
		recipient = session.CustomerEmail
	}
	p.bestEffort(ctx, evt, "thank-you email", func() error {
		return p.Notifier.SendThankYouEmail(ctx, meta.OrderId, recipient, res.Amount)
	})
	p.bestEffort(ctx, evt, "admin notification", func() error {
		subject := "Retailer order paid: " + meta.OrderId
		body := fmt.Sprintf("Retailer order %s was paid (%s).", meta.OrderId, res.Amount.StringFixed(2))
		return p.Notifier.SendAdminNotification(ctx, subject, body)
	})
	return nil
}

func handleStarterKitCompleted(ctx context.Context, p *Pipeline, evt *PaymentEvent) error {
	session := evt.Data.Object
	meta := session.Metadata
	if meta.AffiliateId == "" {
		p.softFailure(ctx, evt, "starter-kit checkout without affiliate_id metadata")
		return nil
	}
	starterKitOrderId := meta.OrderId
	if starterKitOrderId == "" {
		starterKitOrderId = session.ID
	}

	aff, activatedNow, err := p.Affiliates.ActivateAffiliate(ctx, meta.AffiliateId, starterKitOrderId)
	if err != nil {
		if errors.Is(err, workflow.ErrAffiliateNotFound) {
			p.softFailure(ctx, evt, "affiliate "+meta.AffiliateId+" not found")
			return nil
		}
		return fmt.Errorf("activate affiliate %s: %w", meta.AffiliateId, err)
	}
	if !activatedNow {
		p.log(ctx).WithFields(logrus.Fields{
			"event_id":     evt.ID,
			"affiliate_id": meta.AffiliateId,
		}).Info("affiliate already activated; skipping activation email")
		return nil
	}

	p.bestEffort(ctx, evt, "affiliate activation email", func() error {
		return p.Notifier.SendAffiliateActivationEmail(ctx, aff, starterKitOrderId)
	})
	p.bestEffort(ctx, evt, "admin notification", func() error {
		return p.Notifier.SendAdminNotification(ctx,
			"Affiliate activated: "+aff.Code,
			fmt.Sprintf("Affiliate %s (%s) activated via starter kit %s.", aff.Code, aff.Email, starterKitOrderId))
	})
	return nil
}

// Payment-link checkouts have no persisted order row; the only obligation is
// letting the operators know money arrived.
func handlePaymentLinkCompleted(ctx context.Context, p *Pipeline, evt *PaymentEvent) error {
	session := evt.Data.Object
	p.bestEffort(ctx, evt, "admin notification", func() error {
		subject := "Payment link checkout completed"
		body := fmt.Sprintf("Session %s completed for %s (customer %s).",
			session.ID, session.Total().StringFixed(2), session.CustomerEmail)
		return p.Notifier.SendAdminNotification(ctx, subject, body)
	})
	return nil
}

func handleConsumerExpired(ctx context.Context, p *Pipeline, evt *PaymentEvent) error {
	meta := evt.Data.Object.Metadata
	if meta.OrderId == "" {
		p.softFailure(ctx, evt, "expired consumer checkout without order_id metadata")
		return nil
	}
	res, err := p.Orders.TransitionConsumerOrder(ctx, meta.OrderId, models.OrderStatusCancelled)
	if err != nil {
		return fmt.Errorf("transition order %s to CANCELLED: %w", meta.OrderId, err)
	}
	if res.Outcome == workflow.TransitionNotFound {
		p.softFailure(ctx, evt, "order "+meta.OrderId+" not found")
	}
	return nil
}

func handleRetailerExpired(ctx context.Context, p *Pipeline, evt *PaymentEvent) error {
	meta := evt.Data.Object.Metadata
	if meta.OrderId == "" {
		p.softFailure(ctx, evt, "expired retailer checkout without order_id metadata")
		return nil
	}
	res, err := p.Orders.TransitionRetailerOrder(ctx, meta.OrderId, models.OrderStatusCancelled)
	if err != nil {
		return fmt.Errorf("transition retailer order %s to CANCELLED: %w", meta.OrderId, err)
	}
	if res.Outcome == workflow.TransitionNotFound {
		p.softFailure(ctx, evt, "retailer order "+meta.OrderId+" not found")
	}
	return nil
}

// recordAttribution parses the affiliate_ref token and records the
// commission. Runs only after the PENDING->PAID transition, which is what
// bounds it to at most once per order; the unique index on order_id covers
// the remaining crack. Post-transition, so everything here is soft.
func (p *Pipeline) recordAttribution(ctx context.Context, evt *PaymentEvent, res workflow.TransitionResult) {
	session := evt.Data.Object
	token := session.Metadata.AffiliateRef
	if token == "" {
		return
	}
	attr, ok := ParseAttribution(token)
	if !ok {
		p.softFailure(ctx, evt, "malformed attribution token for order "+res.OrderId)
		return
	}

	// Commission is computed from the stored order row, same source of truth
	// as the transition; the event amounts are only a fallback for rows
	// created before subtotals were captured.
	subtotal := res.Subtotal
	if subtotal.IsZero() {
		subtotal = session.Subtotal()
	}

	outcome, err := p.Conversions.RecordConversion(ctx, workflow.ConversionInput{
		AffiliateCode: attr.Code,
		SessionId:     attr.SessionId,
		OrderId:       res.OrderId,
		OrderSubtotal: subtotal,
	})
	if err != nil {
		p.log(ctx).WithFields(logrus.Fields{
			"event_id": evt.ID,
			"order_id": res.OrderId,
		}).Error("failed to record conversion: " + err.Error())
		return
	}
	switch outcome {
	case workflow.ConversionNoAffiliate:
		p.softFailure(ctx, evt, "attribution code "+attr.Code+" does not resolve to an active affiliate")
	case workflow.ConversionRecorded:
		p.log(ctx).WithFields(logrus.Fields{
			"event_id":       evt.ID,
			"order_id":       res.OrderId,
			"affiliate_code": attr.Code,
		}).Info("conversion recorded")
	}
}

func (p *Pipeline) issueReferral(ctx context.Context, evt *PaymentEvent, orderId string, customerId string) {
	ref, err := p.Referrals.MaybeIssueReferralCode(ctx, orderId, customerId)
	if err != nil {
		p.log(ctx).WithFields(logrus.Fields{
			"event_id": evt.ID,
			"order_id": orderId,
		}).Error("failed to issue referral code: " + err.Error())
		return
	}
	if ref != nil {
		p.log(ctx).WithFields(logrus.Fields{
			"event_id":    evt.ID,
			"order_id":    orderId,
			"referrer_id": customerId,
		}).Info("referral code issued")
	}
}

// bestEffort isolates a side-effect command: its failure is logged and
// contained so it can never unwind into the transition boundary and
// misreport the webhook.
func (p *Pipeline) bestEffort(ctx context.Context, evt *PaymentEvent, what string, fn func() error) {
	if err := fn(); err != nil {
		p.log(ctx).WithFields(logrus.Fields{
			"event_id":   evt.ID,
			"event_type": evt.Type,
		}).Error(what + " failed: " + err.Error())
	}
}

func (p *Pipeline) softFailure(ctx context.Context, evt *PaymentEvent, msg string) {
	p.log(ctx).WithFields(logrus.Fields{
		"event_id":   evt.ID,
		"event_type": evt.Type,
	}).Warn(msg)
}
