package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/seedleaf/store_backend/config"
	"github.com/seedleaf/store_backend/models"
	"github.com/seedleaf/store_backend/notify"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NotificationBacklogProcessor sweeps failed email_logs rows and retries them
// with bounded attempts. Emails are best-effort at webhook time; this worker
// is the recovery path for transient SMTP outages. Rows that exhaust their
// attempts stay 'failed' for manual follow-up.
type NotificationBacklogProcessor struct {
	DB          *gorm.DB
	Dispatcher  *notify.Dispatcher
	Logger      *logrus.Logger
	BatchSize   int
	Interval    time.Duration
	MaxAttempts int
}

func NewNotificationBacklogProcessor(db *gorm.DB, dispatcher *notify.Dispatcher, logger *logrus.Logger) *NotificationBacklogProcessor {
	return &NotificationBacklogProcessor{
		DB:          db,
		Dispatcher:  dispatcher,
		Logger:      logger,
		BatchSize:   20,
		Interval:    time.Minute,
		MaxAttempts: 5,
	}
}

// Off by default: most deployments prefer failed notifications to stay
// visible in email_logs rather than being retried hours later.
func shouldRunNotificationBacklog() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("NOTIFICATION_BACKLOG_RETRY")), "true")
}

func (p *NotificationBacklogProcessor) Run(ctx context.Context) {
	if p == nil || p.DB == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.processOnce()
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

func (p *NotificationBacklogProcessor) processOnce() {
	var rows []models.EmailLog
	err := p.DB.
		Where("status = ? AND attempts < ?", models.EmailStatusFailed, p.MaxAttempts).
		Order("updated_at asc").
		Limit(p.BatchSize).
		Find(&rows).Error
	if err != nil {
		config.LogError(p.Logger, "server.go", "processOnce", "load failed email_logs", nil, err)
		return
	}

	for i := range rows {
		row := rows[i]
		if err := p.Dispatcher.ResendLogged(&row); err != nil {
			p.Logger.WithFields(logrus.Fields{
				"email_log_id": row.ID,
				"template":     row.Template,
				"attempts":     row.Attempts + 1,
			}).Warn("notification retry failed: " + err.Error())
			continue
		}
		p.Logger.WithFields(logrus.Fields{
			"email_log_id": row.ID,
			"template":     row.Template,
		}).Info("notification retry succeeded")
	}
}
