package webhook

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventCheckoutCompleted EventType = "checkout.session.completed"
	EventCheckoutExpired   EventType = "checkout.session.expired"
)

// OrderKind is the order-type tag embedded in checkout metadata. It decides
// which completed-checkout branch runs.
type OrderKind string

const (
	OrderKindConsumer    OrderKind = "consumer_order"
	OrderKindRetailer    OrderKind = "retailer_order"
	OrderKindStarterKit  OrderKind = "affiliate_starter_kit"
	OrderKindPaymentLink OrderKind = "payment_link"
)

// PaymentEvent is one delivery from the payment provider. The provider may
// deliver the same logical event more than once and out of order; the
// pipeline never mutates it.
type PaymentEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Created    int64     `json:"created"`
	Data       EventData `json:"data"`
	ReceivedAt time.Time `json:"-"`
}

type EventData struct {
	Object CheckoutSession `json:"object"`
}

// CheckoutSession is the event payload body. Amounts arrive in minor units
// (cents).
type CheckoutSession struct {
	ID             string          `json:"id"`
	AmountTotal    int64           `json:"amount_total"`
	AmountSubtotal int64           `json:"amount_subtotal"`
	CustomerEmail  string          `json:"customer_email"`
	Metadata       SessionMetadata `json:"metadata"`
}

// SessionMetadata is set by the storefront when the checkout session is
// created and echoed back by the provider on every event for that session.
type SessionMetadata struct {
	OrderType    string `json:"order_type"`
	OrderId      string `json:"order_id"`
	CustomerId   string `json:"customer_id"`
	AffiliateRef string `json:"affiliate_ref"`
	AffiliateId  string `json:"affiliate_id"`
}

var errEventIncomplete = errors.New("event missing id or type")

func ParseEvent(body []byte, receivedAt time.Time) (*PaymentEvent, error) {
	var evt PaymentEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, err
	}
	if evt.ID == "" || evt.Type == "" {
		return nil, errEventIncomplete
	}
	evt.ReceivedAt = receivedAt
	return &evt, nil
}

func (e *PaymentEvent) OrderKind() OrderKind {
	return OrderKind(e.Data.Object.Metadata.OrderType)
}

// Subtotal converts the session amounts from cents, preferring the explicit
// subtotal (commission is computed pre-tax/pre-shipping).
func (s CheckoutSession) Subtotal() decimal.Decimal {
	cents := s.AmountSubtotal
	if cents == 0 {
		cents = s.AmountTotal
	}
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

func (s CheckoutSession) Total() decimal.Decimal {
	return decimal.NewFromInt(s.AmountTotal).Div(decimal.NewFromInt(100))
}

// Attribution is the decoded affiliate referral token.
type Attribution struct {
	Code      string `json:"code"`
	SessionId string `json:"sid"`
}

// ParseAttribution decodes the opaque affiliate_ref token
// (base64 of {"code":...,"sid":...}). Any malformed token means "no
// attribution", never an error.
func ParseAttribution(token string) (Attribution, bool) {
	if token == "" {
		return Attribution{}, false
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Attribution{}, false
	}
	var attr Attribution
	if err := json.Unmarshal(raw, &attr); err != nil {
		return Attribution{}, false
	}
	if attr.Code == "" {
		return Attribution{}, false
	}
	return attr, true
}

// EncodeAttribution builds the token the storefront embeds in checkout
// metadata. Kept next to the parser so the two cannot drift.
func EncodeAttribution(attr Attribution) string {
	raw, _ := json.Marshal(attr)
	return base64.StdEncoding.EncodeToString(raw)
}
