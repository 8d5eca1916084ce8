package webhook

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseEvent(t *testing.T) {
	body := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"created": 1700000000,
		"data": {"object": {
			"id": "cs_1",
			"amount_total": 4850,
			"amount_subtotal": 4000,
			"customer_email": "buyer@example.com",
			"metadata": {
				"order_type": "consumer_order",
				"order_id": "ord_1",
				"customer_id": "cus_1"
			}
		}}
	}`)
	now := time.Now()

	evt, err := ParseEvent(body, now)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if evt.ID != "evt_1" || evt.Type != EventCheckoutCompleted {
		t.Fatalf("unexpected id/type: %s %s", evt.ID, evt.Type)
	}
	if evt.OrderKind() != OrderKindConsumer {
		t.Fatalf("expected consumer order kind, got %s", evt.OrderKind())
	}
	if !evt.ReceivedAt.Equal(now) {
		t.Fatalf("ReceivedAt not stamped")
	}

	if got := evt.Data.Object.Subtotal(); !got.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("subtotal: expected 40, got %s", got)
	}
	if got := evt.Data.Object.Total(); !got.Equal(decimal.NewFromFloat(48.50)) {
		t.Fatalf("total: expected 48.50, got %s", got)
	}
}

func TestParseEventRejectsIncomplete(t *testing.T) {
	for _, body := range []string{
		`not json`,
		`{"type":"checkout.session.completed"}`,
		`{"id":"evt_1"}`,
	} {
		if _, err := ParseEvent([]byte(body), time.Now()); err == nil {
			t.Fatalf("expected error for body %q", body)
		}
	}
}

func TestSubtotalFallsBackToTotal(t *testing.T) {
	s := CheckoutSession{AmountTotal: 2500}
	if got := s.Subtotal(); !got.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected fallback to total, got %s", got)
	}
}

func TestAttributionRoundTrip(t *testing.T) {
	token := EncodeAttribution(Attribution{Code: "AFF1", SessionId: "sess_9"})
	attr, ok := ParseAttribution(token)
	if !ok {
		t.Fatal("expected token to parse")
	}
	if attr.Code != "AFF1" || attr.SessionId != "sess_9" {
		t.Fatalf("unexpected attribution: %+v", attr)
	}
}

func TestParseAttributionMalformed(t *testing.T) {
	for _, token := range []string{
		"",
		"!!!not-base64!!!",
		"bm90IGpzb24=",         // "not json"
		"eyJzaWQiOiJzXzEifQ==", // json but no code
	} {
		if _, ok := ParseAttribution(token); ok {
			t.Fatalf("expected token %q to be rejected", token)
		}
	}
}
