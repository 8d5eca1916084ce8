package notify

import (
	"strings"
	"testing"

	"github.com/seedleaf/store_backend/models"
	"github.com/shopspring/decimal"
)

func TestThankYouTemplate(t *testing.T) {
	subject := thankYouSubject("ord_1")
	if !strings.Contains(subject, "ord_1") {
		t.Fatalf("subject missing order id: %s", subject)
	}

	body := thankYouBody("ord_1", decimal.NewFromFloat(48.5))
	if !strings.Contains(body, "ord_1") {
		t.Fatalf("body missing order id: %s", body)
	}
	if !strings.Contains(body, "$48.50") {
		t.Fatalf("body missing formatted amount: %s", body)
	}
}

func TestActivationTemplate(t *testing.T) {
	aff := &models.Affiliate{Code: "AFF1", Name: "Jordan"}
	body := activationBody(aff, "kit_1")
	if !strings.Contains(body, "Jordan") || !strings.Contains(body, "AFF1") || !strings.Contains(body, "kit_1") {
		t.Fatalf("body missing fields: %s", body)
	}

	// No name on file still reads as a sentence.
	anon := activationBody(&models.Affiliate{Code: "AFF2"}, "kit_2")
	if !strings.Contains(anon, "Hi there") {
		t.Fatalf("fallback greeting missing: %s", anon)
	}
}
