package config

import "time"

// CommsConfig configures outbound message delivery.
type CommsConfig struct {
	// Provider selects the transport: "twilio", "ses" or "console" (dev mode).
	Provider string

	Twilio TwilioConfig
	Email  EmailConfig

	// Breaker settings are shared by every channel adapter.
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Retry settings drive caller-level retry orchestration.
	MaxRetries   int
	RetryBackoff time.Duration

	// FallbackChannel is tried when the primary channel fails terminally
	// or its breaker is open ("email", "sms" or empty to disable).
	FallbackChannel string
}

// TwilioConfig holds Twilio credentials for WhatsApp and SMS.
type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string // e.g. "whatsapp:+14155238886"
	SMSFrom      string
}

// EmailConfig holds the SES sender identity.
type EmailConfig struct {
	FromAddress string
	FromName    string
	AWSRegion   string
}

func loadCommsConfig() CommsConfig {
	return CommsConfig{
		Provider: getEnv("COMMS_PROVIDER", "console"),
		Twilio: TwilioConfig{
			AccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
			WhatsAppFrom: getEnv("TWILIO_WHATSAPP_FROM", ""),
			SMSFrom:      getEnv("TWILIO_SMS_FROM", ""),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@garage.local"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Garage"),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		},
		BreakerThreshold: getEnvInt("COMMS_BREAKER_THRESHOLD", 5),
		BreakerCooldown:  getEnvDuration("COMMS_BREAKER_COOLDOWN", 5*time.Minute),
		MaxRetries:       getEnvInt("COMMS_MAX_RETRIES", 3),
		RetryBackoff:     getEnvDuration("COMMS_RETRY_BACKOFF", time.Second),
		FallbackChannel:  getEnv("COMMS_FALLBACK_CHANNEL", ""),
	}
}
