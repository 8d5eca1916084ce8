package webhook

import (
	"context"
	"fmt"

	"github.com/seedleaf/store_backend/models"
	"github.com/seedleaf/store_backend/utils"
	"github.com/seedleaf/store_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
)

// The pipeline talks to persistence and email through these narrow
// interfaces so tests can substitute fakes. workflow.Store and
// notify.Dispatcher are the production implementations.

type OrderStore interface {
	TransitionConsumerOrder(ctx context.Context, orderId string, target models.OrderStatus) (workflow.TransitionResult, error)
	TransitionRetailerOrder(ctx context.Context, orderId string, target models.OrderStatus) (workflow.TransitionResult, error)
}

type ConversionStore interface {
	RecordConversion(ctx context.Context, in workflow.ConversionInput) (workflow.ConversionOutcome, error)
}

type ReferralStore interface {
	MaybeIssueReferralCode(ctx context.Context, orderId string, customerId string) (*models.Referral, error)
}

type AffiliateStore interface {
	ActivateAffiliate(ctx context.Context, affiliateId string, starterKitOrderId string) (*models.Affiliate, bool, error)
}

type Ledger interface {
	HasProcessed(ctx context.Context, eventId string) (bool, error)
	MarkProcessed(ctx context.Context, eventId string, eventType string) error
}

type Notifier interface {
	SendThankYouEmail(ctx context.Context, orderId string, recipient string, amount decimal.Decimal) error
	SendAdminNotification(ctx context.Context, subject string, body string) error
	SendAffiliateActivationEmail(ctx context.Context, affiliate *models.Affiliate, orderId string) error
}

type Pipeline struct {
	Orders      OrderStore
	Conversions ConversionStore
	Referrals   ReferralStore
	Affiliates  AffiliateStore
	Ledger      Ledger
	Notifier    Notifier
	Logger      *logrus.Logger
}

func NewPipeline(p Pipeline) *Pipeline {
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	return &p
}

// log stamps every pipeline log line with the request correlation id so one
// delivery's lines can be stitched together across packages.
func (p *Pipeline) log(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(p.Logger)
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		entry = entry.WithField("correlation_id", cid)
	}
	return entry
}

// Process runs one verified event through ledger check -> routing ->
// handler -> ledger mark. Only two things are hard failures here: the
// ledger read and whatever the handler itself escalates (in practice,
// persistence being down mid-transition). Everything downstream of a
// committed transition is best-effort.
func (p *Pipeline) Process(ctx context.Context, evt *PaymentEvent) (Outcome, error) {
	seen, err := p.Ledger.HasProcessed(ctx, evt.ID)
	if err != nil {
		return "", fmt.Errorf("idempotency check for event %s: %w", evt.ID, err)
	}
	if seen {
		p.log(ctx).WithFields(logrus.Fields{
			"event_id":   evt.ID,
			"event_type": evt.Type,
		}).Info("duplicate delivery short-circuited")
		return OutcomeDuplicate, nil
	}

	if handler := p.route(ctx, evt); handler != nil {
		if err := handler(ctx, p, evt); err != nil {
			return "", err
		}
	}

	// Marking is deliberately last and non-fatal: a lost ledger write only
	// costs one harmless re-run of the transition guard on the next
	// duplicate delivery.
	if err := p.Ledger.MarkProcessed(ctx, evt.ID, string(evt.Type)); err != nil {
		p.log(ctx).WithFields(logrus.Fields{
			"event_id":   evt.ID,
			"event_type": evt.Type,
		}).Error("failed to write idempotency record: " + err.Error())
	}
	return OutcomeProcessed, nil
}
