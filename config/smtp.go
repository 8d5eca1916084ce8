package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
)

// SMTPConfig is resolved lazily on first send and reused for the process
// lifetime. A broken email configuration must never block webhook
// processing, so loading errors surface per send attempt, not at boot.
type SMTPConfig struct {
	Host       string `validate:"required"`
	Port       string `validate:"required"`
	User       string `validate:"required"`
	Password   string `validate:"required"`
	From       string `validate:"required,email"`
	AdminEmail string `validate:"required,email"`
}

func (c SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

var (
	smtpOnce sync.Once
	smtpCfg  SMTPConfig
	smtpErr  error
)

func GetSMTPConfig() (SMTPConfig, error) {
	smtpOnce.Do(func() {
		cfg := SMTPConfig{
			Host:       os.Getenv("SMTP_HOST"),
			Port:       os.Getenv("SMTP_PORT"),
			User:       os.Getenv("SMTP_USER"),
			Password:   os.Getenv("SMTP_PASSWORD"),
			From:       os.Getenv("MAIL_FROM"),
			AdminEmail: os.Getenv("MAIL_ADMIN"),
		}
		if err := validator.New().Struct(cfg); err != nil {
			smtpErr = fmt.Errorf("smtp config invalid: %w", err)
			return
		}
		smtpCfg = cfg
	})
	return smtpCfg, smtpErr
}
