package webhook

import (
	"context"

	"github.com/sirupsen/logrus"
)

type handlerFunc func(ctx context.Context, p *Pipeline, evt *PaymentEvent) error

type routeKey struct {
	event EventType
	order OrderKind
}

// routes is the total dispatch table over (event type, order type). Any
// combination not listed falls through to the acknowledge-and-ignore
// default: the provider must never be made to retry an event we will never
// handle.
var routes = map[routeKey]handlerFunc{
	{EventCheckoutCompleted, OrderKindConsumer}:    handleConsumerCompleted,
	{EventCheckoutCompleted, OrderKindRetailer}:    handleRetailerCompleted,
	{EventCheckoutCompleted, OrderKindStarterKit}:  handleStarterKitCompleted,
	{EventCheckoutCompleted, OrderKindPaymentLink}: handlePaymentLinkCompleted,
	{EventCheckoutExpired, OrderKindConsumer}:      handleConsumerExpired,
	{EventCheckoutExpired, OrderKindRetailer}:      handleRetailerExpired,
}

func (p *Pipeline) route(ctx context.Context, evt *PaymentEvent) handlerFunc {
	handler, ok := routes[routeKey{event: evt.Type, order: evt.OrderKind()}]
	if !ok {
		p.log(ctx).WithFields(logrus.Fields{
			"event_id":   evt.ID,
			"event_type": evt.Type,
			"order_type": evt.OrderKind(),
		}).Info("unhandled event/order combination acknowledged")
		return nil
	}
	return handler
}
