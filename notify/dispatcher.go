package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/seedleaf/store_backend/config"
	"github.com/seedleaf/store_backend/models"
	"github.com/seedleaf/store_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Dispatcher sends transactional email over SMTP and records every attempt in
// email_logs. Sending is best-effort by contract: callers log failures and
// move on, and a 'sent' log row for (order_id, template) suppresses re-sends
// on duplicate deliveries whose ledger write was lost.
type Dispatcher struct {
	DB     *gorm.DB
	Logger *logrus.Logger

	// sendFn is swapped out in tests. Production uses smtpSend.
	sendFn func(cfg config.SMTPConfig, msg *email.Email) error
}

func NewDispatcher(db *gorm.DB, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{DB: db, Logger: logger, sendFn: smtpSend}
}

func smtpSend(cfg config.SMTPConfig, msg *email.Email) error {
	auth := smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	return msg.Send(cfg.Addr(), auth)
}

// log carries the request correlation id and event id from the webhook
// handler into the email audit trail.
func (d *Dispatcher) log(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(d.Logger)
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		entry = entry.WithField("correlation_id", cid)
	}
	if eid, ok := utils.GetEventIdFromContext(ctx); ok {
		entry = entry.WithField("event_id", eid)
	}
	return entry
}

func (d *Dispatcher) db() (*gorm.DB, error) {
	if d.DB != nil {
		return d.DB, nil
	}
	if db := config.GetDB(); db != nil {
		return db, nil
	}
	return nil, errors.New("database not ready")
}

func (d *Dispatcher) SendThankYouEmail(ctx context.Context, orderId string, recipient string, amount decimal.Decimal) error {
	if recipient == "" {
		d.log(ctx).WithField("order_id", orderId).Warn("no recipient for thank-you email; skipping")
		return nil
	}
	already, err := d.alreadySent(orderId, TemplateThankYou)
	if err != nil {
		return err
	}
	if already {
		d.log(ctx).WithField("order_id", orderId).Info("thank-you email already sent; skipping")
		return nil
	}
	return d.send(orderId, TemplateThankYou, recipient, thankYouSubject(orderId), thankYouBody(orderId, amount))
}

func (d *Dispatcher) SendAffiliateActivationEmail(ctx context.Context, aff *models.Affiliate, orderId string) error {
	if aff.Email == "" {
		d.log(ctx).WithField("affiliate_id", aff.ID).Warn("affiliate has no email; skipping activation email")
		return nil
	}
	already, err := d.alreadySent(orderId, TemplateAffiliateActivation)
	if err != nil {
		return err
	}
	if already {
		d.log(ctx).WithField("order_id", orderId).Info("activation email already sent; skipping")
		return nil
	}
	return d.send(orderId, TemplateAffiliateActivation, aff.Email, activationSubject(aff), activationBody(aff, orderId))
}

// SendAdminNotification is not gated by order: admin notices fire once per
// processed event, and the event ledger already bounds that.
func (d *Dispatcher) SendAdminNotification(ctx context.Context, subject string, body string) error {
	cfg, err := config.GetSMTPConfig()
	if err != nil {
		return err
	}
	return d.send("", TemplateAdminNotice, cfg.AdminEmail, subject, body)
}

// alreadySent reports whether a 'sent' log row exists for the order/template
// pair. A DB error here fails the send rather than risking a duplicate.
func (d *Dispatcher) alreadySent(orderId string, template string) (bool, error) {
	if orderId == "" {
		return false, nil
	}
	db, err := d.db()
	if err != nil {
		return false, err
	}
	var count int64
	err = db.Model(&models.EmailLog{}).
		Where("order_id = ? AND template = ? AND status = ?", orderId, template, models.EmailStatusSent).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *Dispatcher) send(orderId string, template string, recipient string, subject string, body string) error {
	cfg, cfgErr := config.GetSMTPConfig()

	var sendErr error
	if cfgErr != nil {
		sendErr = cfgErr
	} else {
		msg := email.NewEmail()
		msg.From = cfg.From
		msg.To = []string{recipient}
		msg.Subject = subject
		msg.Text = []byte(body)
		sendErr = d.sendFn(cfg, msg)
	}

	d.logAttempt(orderId, template, recipient, subject, body, sendErr)
	if sendErr != nil {
		return fmt.Errorf("send %s to %s: %w", template, recipient, sendErr)
	}
	return nil
}

// ResendLogged retries a previously failed attempt in place: same recipient,
// subject and body, with the attempt counter bumped instead of a new audit
// row appended.
func (d *Dispatcher) ResendLogged(row *models.EmailLog) error {
	db, err := d.db()
	if err != nil {
		return err
	}

	cfg, cfgErr := config.GetSMTPConfig()
	var sendErr error
	if cfgErr != nil {
		sendErr = cfgErr
	} else {
		msg := email.NewEmail()
		msg.From = cfg.From
		msg.To = []string{row.Recipient}
		msg.Subject = row.Subject
		msg.Text = []byte(row.Body)
		sendErr = d.sendFn(cfg, msg)
	}

	updates := map[string]interface{}{
		"status":        models.EmailStatusSent,
		"error_message": nil,
		"attempts":      row.Attempts + 1,
	}
	if sendErr != nil {
		updates["status"] = models.EmailStatusFailed
		updates["error_message"] = sendErr.Error()
	}
	if err := db.Model(&models.EmailLog{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
		config.LogError(d.Logger, "notify", "ResendLogged", "Updates", row.ID, err)
	}
	if sendErr != nil {
		return fmt.Errorf("resend %s to %s: %w", row.Template, row.Recipient, sendErr)
	}
	return nil
}

// logAttempt writes the audit row. Failing to write it is logged but does not
// turn a successful send into a failure.
func (d *Dispatcher) logAttempt(orderId string, template string, recipient string, subject string, body string, sendErr error) {
	db, err := d.db()
	if err != nil {
		config.LogError(d.Logger, "notify", "logAttempt", "db", orderId, err)
		return
	}

	row := models.EmailLog{
		OrderId:   orderId,
		Template:  template,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Status:    models.EmailStatusSent,
	}
	if sendErr != nil {
		row.Status = models.EmailStatusFailed
		msg := sendErr.Error()
		row.ErrorMessage = &msg
	}
	if err := db.Create(&row).Error; err != nil {
		config.LogError(d.Logger, "notify", "logAttempt", "Create", orderId, err)
	}
}
