package config

import "time"

// OTPConfig configures one-time code issuance and verification.
type OTPConfig struct {
	// Secret keys the HMAC over stored codes. Required outside dev mode.
	Secret string

	Expiry      time.Duration
	MaxAttempts int

	// HourlyCap is the maximum sends per phone+purpose per window.
	HourlyCap  int
	CapWindow  time.Duration
	CodeLength int

	// JWTSecret signs the session token minted on successful verification.
	JWTSecret string
	TokenTTL  time.Duration
}

func loadOTPConfig() OTPConfig {
	return OTPConfig{
		Secret:      getEnv("OTP_SECRET", ""),
		Expiry:      getEnvDuration("OTP_EXPIRY", 5*time.Minute),
		MaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 3),
		HourlyCap:   getEnvInt("OTP_HOURLY_CAP", 5),
		CapWindow:   getEnvDuration("OTP_CAP_WINDOW", time.Hour),
		CodeLength:  getEnvInt("OTP_CODE_LENGTH", 6),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		TokenTTL:    getEnvDuration("JWT_TOKEN_TTL", 24*time.Hour),
	}
}
