package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

// Config is loaded from the environment. Channel credentials are optional;
// an incomplete set leaves that channel unconfigured rather than failing
// startup, so a household can run with any subset of transports.
type Config struct {
	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// Optional infrastructure. Empty DSN disables the delivery archive;
	// empty Redis URL keeps rate limiting in process memory.
	DatabaseDSN string `env:"DATABASE_DSN"`
	RedisURL    string `env:"REDIS_URL"`

	WhatsAppBaseURL string `env:"WHATSAPP_BASE_URL"`
	WhatsAppToken   string `env:"WHATSAPP_TOKEN"`
	WhatsAppPhoneID string `env:"WHATSAPP_PHONE_ID"`

	SMSBaseURL    string `env:"SMS_BASE_URL,default=https://api.twilio.com"`
	SMSAccountSID string `env:"SMS_ACCOUNT_SID"`
	SMSAuthToken  string `env:"SMS_AUTH_TOKEN"`
	SMSFromNumber string `env:"SMS_FROM_NUMBER"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	EmailFrom    string `env:"EMAIL_FROM"`

	SweepIntervalSeconds  int `env:"SWEEP_INTERVAL_SECONDS,default=30"`
	BulkBatchSize         int `env:"BULK_BATCH_SIZE,default=10"`
	BulkPauseMillis       int `env:"BULK_PAUSE_MILLIS,default=1000"`
	AttemptTimeoutSeconds int `env:"ATTEMPT_TIMEOUT_SECONDS,default=10"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
