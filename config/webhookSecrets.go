package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// WebhookConfig carries the payment-provider webhook verification settings,
// resolved once at startup and injected into the signature verifier. The
// environment switch happens here and nowhere else, so a misconfigured
// deployment fails at boot instead of silently verifying against the wrong
// secret.
type WebhookConfig struct {
	Environment string        `validate:"required"`
	Secret      string        `validate:"required"`
	Tolerance   time.Duration `validate:"required"`
}

// LoadWebhookConfig selects the signing secret by APP_ENV:
// - "production" uses PAYMENT_WEBHOOK_SECRET_LIVE
// - anything else uses PAYMENT_WEBHOOK_SECRET_TEST
// There is no fallback between the two.
func LoadWebhookConfig() (WebhookConfig, error) {
	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	cfg := WebhookConfig{
		Environment: env,
		Tolerance:   5 * time.Minute,
	}
	if env == "production" {
		cfg.Secret = os.Getenv("PAYMENT_WEBHOOK_SECRET_LIVE")
	} else {
		cfg.Secret = os.Getenv("PAYMENT_WEBHOOK_SECRET_TEST")
	}

	if raw := strings.TrimSpace(os.Getenv("WEBHOOK_TOLERANCE_SECONDS")); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			cfg.Tolerance = time.Duration(secs) * time.Second
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return WebhookConfig{}, fmt.Errorf("webhook config invalid (env=%s): %w", env, err)
	}
	return cfg, nil
}
