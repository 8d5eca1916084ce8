package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/seedleaf/store_backend/config"
	"github.com/seedleaf/store_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	maxBodyBytes  = 1 << 20 // provider payloads are a few KB; anything near 1MB is hostile
	orderLockTTL  = 30 * time.Second
	orderLockPref = "lock:order:"
)

// Processor lets the HTTP handler be tested without a real pipeline.
type Processor interface {
	Process(ctx context.Context, evt *PaymentEvent) (Outcome, error)
}

// Handler is the gin endpoint for POST /webhooks/payments. It owns the
// transport concerns: reading the raw body, signature verification, parsing,
// correlation id, and mapping pipeline outcomes to status codes.
type Handler struct {
	Config    config.WebhookConfig
	Processor Processor
	Logger    *logrus.Logger
	now       func() time.Time
}

func NewHandler(cfg config.WebhookConfig, processor Processor, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{Config: cfg, Processor: processor, Logger: logger, now: time.Now}
}

func (h *Handler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	// Verification comes before everything else: until it passes the body is
	// untrusted input and nothing in it may be parsed or acted on.
	header := c.GetHeader(SignatureHeader)
	if err := VerifySignature(body, header, h.Config.Secret, h.now(), h.Config.Tolerance); err != nil {
		if errors.Is(err, ErrMissingSignature) {
			h.Logger.Warn("webhook delivery without signature header rejected")
		} else {
			h.Logger.Warn("webhook signature rejected: " + err.Error())
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	evt, err := ParseEvent(body, h.now())
	if err != nil {
		// Authenticated but malformed. The provider signed it, so a retry
		// would deliver the same bytes; ack it and keep the noise in logs.
		h.Logger.Warn("authenticated webhook body unparseable: " + err.Error())
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	correlationId := uuid.NewString()
	ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
	ctx = utils.SetEventIdInContext(ctx, evt.ID)

	// Best-effort per-order lock to keep concurrent deliveries for the same
	// order from interleaving. Correctness never depends on it; the
	// conditional transition write is the real guard.
	if orderId := evt.Data.Object.Metadata.OrderId; orderId != "" {
		if locker := config.GetRedisLock(); locker != nil {
			lock, lockErr := locker.Obtain(ctx, orderLockPref+orderId, orderLockTTL, nil)
			if lockErr == nil {
				defer lock.Release(context.Background())
			} else if lockErr != redislock.ErrNotObtained {
				h.Logger.Warn("order lock unavailable: " + lockErr.Error())
			}
		}
	}

	outcome, err := h.Processor.Process(ctx, evt)
	if err != nil {
		config.LogError(h.Logger, "webhook", "Handle", "Process", map[string]string{
			"event_id":       evt.ID,
			"correlation_id": correlationId,
		}, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}

	if outcome == OutcomeDuplicate {
		c.JSON(http.StatusOK, gin.H{"received": true, "deduplicated": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
