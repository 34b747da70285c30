// Package otpsrv implements the OTP issuance and verification engine.
package otpsrv

import (
	"context"
	"fmt"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/logx"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/otp"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Template names, one per purpose.
const (
	tmplRegistration  = "otp_registration"
	tmplLogin         = "otp_login"
	tmplPasswordReset = "otp_password_reset"
)

// Options configures the engine.
type Options struct {
	// Secret keys the HMAC over stored codes.
	Secret      string
	Expiry      time.Duration
	MaxAttempts int
	CodeLength  int

	// HourlyCap limits sends per phone+purpose per CapWindow.
	HourlyCap int
	CapWindow time.Duration

	// JWTSecret, when set, signs a session token returned on successful
	// verification. TokenTTL bounds its validity.
	JWTSecret string
	TokenTTL  time.Duration
}

func (o *Options) fillDefaults() {
	if o.Expiry <= 0 {
		o.Expiry = 5 * time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.CodeLength <= 0 {
		o.CodeLength = 6
	}
	if o.HourlyCap <= 0 {
		o.HourlyCap = 5
	}
	if o.CapWindow <= 0 {
		o.CapWindow = time.Hour
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = 24 * time.Hour
	}
}

// Service issues and verifies one-time codes. All calls are request-scoped;
// nothing here retries in the background.
type Service struct {
	repo      otp.Repository
	limiter   otp.RateLimiter
	channel   comms.Channel
	templates *comms.TemplateRegistry
	opts      Options
}

// NewService creates the engine. channel is the delivery channel for codes
// (WhatsApp by default in production, console in dev mode).
func NewService(repo otp.Repository, limiter otp.RateLimiter, channel comms.Channel, opts Options) *Service {
	opts.fillDefaults()

	templates := comms.NewTemplateRegistry()
	// Registration of static templates cannot fail.
	_ = templates.Register(tmplRegistration,
		"Welcome to Garage! Your verification code is {{.Code}}. It expires in {{.Minutes}} minutes.")
	_ = templates.Register(tmplLogin,
		"Your Garage login code is {{.Code}}. It expires in {{.Minutes}} minutes. Never share this code.")
	_ = templates.Register(tmplPasswordReset,
		"Your Garage password reset code is {{.Code}}. It expires in {{.Minutes}} minutes. If you did not request this, ignore this message.")

	return &Service{
		repo:      repo,
		limiter:   limiter,
		channel:   channel,
		templates: templates,
		opts:      opts,
	}
}

// SendOTP issues a fresh code for phone+purpose and dispatches it through
// the configured channel. A new send replaces any prior unconsumed code
// for the same key.
//
// Delivery failure does not invalidate the stored record: the code may
// still reach the user out of band (dev-mode logs, delayed provider
// delivery), and the attempt budget and expiry still bound abuse. The
// failure is reported in the returned result instead.
func (s *Service) SendOTP(ctx context.Context, countryCode, phone string, purpose otp.Purpose) *comms.Result {
	if !purpose.Valid() {
		return comms.FailWithType(comms.ServiceOTP,
			fmt.Sprintf("Unknown OTP purpose %q", purpose), comms.ErrorValidation)
	}

	e164, err := comms.FormatE164(phone, countryCode)
	if err != nil {
		return comms.FailWithType(comms.ServiceOTP,
			"Invalid phone number or country code", comms.ErrorValidation)
	}

	// Rate limit before creating anything. The store-level increment is
	// atomic, so concurrent sends cannot both slip under the cap.
	rlKey := fmt.Sprintf("otp:%s:%s", e164, purpose)
	count, resetAt, err := s.limiter.Hit(ctx, rlKey, s.opts.CapWindow)
	if err != nil {
		logx.WithError(err).Error("otp: rate limiter unavailable")
		return comms.FailWithType(comms.ServiceOTP,
			"OTP service temporarily unavailable", comms.ErrorServiceUnavailable)
	}
	if count > int64(s.opts.HourlyCap) {
		retryAfter := int(time.Until(resetAt).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		return comms.FailWithType(comms.ServiceOTP,
			"Too many OTP requests, please try again later", comms.ErrorRateLimit).
			SetRateLimited().
			WithMeta("retry_after", retryAfter)
	}

	code, err := otp.GenerateCode(s.opts.CodeLength)
	if err != nil {
		return comms.FailWithType(comms.ServiceOTP,
			"Failed to generate OTP code", comms.ErrorServiceUnavailable)
	}

	record := &otp.Record{
		ID:          uuid.NewString(),
		Phone:       e164,
		CountryCode: countryCode,
		CodeHash:    otp.HashCode(code, s.opts.Secret),
		Purpose:     purpose,
		Attempts:    0,
		MaxAttempts: s.opts.MaxAttempts,
		ExpiresAt:   time.Now().Add(s.opts.Expiry),
		CreatedAt:   time.Now(),
	}

	if err := s.repo.Upsert(ctx, record); err != nil {
		logx.WithError(err).Error("otp: failed to persist record")
		return comms.FailWithType(comms.ServiceOTP,
			"Failed to issue OTP", comms.ErrorServiceUnavailable)
	}

	body, err := s.templates.Render(s.templateFor(purpose), map[string]interface{}{
		"Code":    code,
		"Minutes": int(s.opts.Expiry.Minutes()),
	})
	if err != nil {
		return comms.FailWithType(comms.ServiceOTP,
			"Failed to render OTP message", comms.ErrorValidation)
	}

	delivery := s.channel.Send(ctx, comms.Message{
		To:      e164,
		Subject: "Your verification code",
		Body:    body,
	})
	if !delivery.Success {
		// Record stays valid; see the method comment.
		delivery.WithMeta(comms.MetaDeliveryFailed, true)
		delivery.SetExpiresIn(int(s.opts.Expiry.Seconds()))
		return delivery
	}

	result := comms.Succeed(comms.ServiceOTP, "OTP sent successfully").
		SetExpiresIn(int(s.opts.Expiry.Seconds()))
	if id, ok := delivery.Metadata[comms.MetaMessageID]; ok {
		result.WithMeta(comms.MetaMessageID, id)
	}
	return result
}

// VerifyOTP checks a submitted code against the active record for
// phone+purpose. The hash comparison is constant-time.
func (s *Service) VerifyOTP(ctx context.Context, countryCode, phone, submittedCode string, purpose otp.Purpose) *comms.Result {
	e164, err := comms.FormatE164(phone, countryCode)
	if err != nil {
		return comms.FailWithType(comms.ServiceOTP,
			"Invalid phone number or country code", comms.ErrorValidation)
	}

	record, err := s.repo.GetLatest(ctx, e164, countryCode, purpose)
	if err != nil {
		return comms.FailWithType(comms.ServiceOTP,
			"No active OTP for this phone, request a new code", comms.ErrorValidation).
			SetExpired()
	}

	if record.Verified {
		return comms.FailWithType(comms.ServiceOTP,
			"OTP already used, request a new code", comms.ErrorValidation).
			SetExpired()
	}

	if record.IsExpired() {
		return comms.FailWithType(comms.ServiceOTP,
			"OTP has expired, request a new code", comms.ErrorValidation).
			SetExpired()
	}

	// Exhausted before this call: no hash work, terminal answer.
	if record.IsExhausted() {
		return comms.FailWithType(comms.ServiceOTP,
			"No verification attempts remaining, request a new code", comms.ErrorValidation).
			SetExpired().
			SetAttempts(record.Attempts, record.MaxAttempts)
	}

	if otp.VerifyCode(submittedCode, s.opts.Secret, record.CodeHash) {
		record.Verified = true
		if err := s.repo.Update(ctx, record); err != nil {
			logx.WithError(err).Error("otp: failed to mark record verified")
			return comms.FailWithType(comms.ServiceOTP,
				"Failed to complete verification", comms.ErrorServiceUnavailable)
		}

		result := comms.Succeed(comms.ServiceOTP, "Phone verified successfully")
		if s.opts.JWTSecret != "" {
			token, err := s.mintSessionToken(e164, purpose)
			if err != nil {
				logx.WithError(err).Error("otp: failed to sign session token")
			} else {
				result.WithMeta(comms.MetaSessionToken, token)
			}
		}
		return result
	}

	record.Attempts++
	if err := s.repo.Update(ctx, record); err != nil {
		logx.WithError(err).Error("otp: failed to persist attempt count")
	}

	if record.IsExhausted() {
		return comms.FailWithType(comms.ServiceOTP,
			"Incorrect code, no attempts remaining", comms.ErrorValidation).
			SetAttempts(record.Attempts, record.MaxAttempts)
	}

	return comms.FailWithType(comms.ServiceOTP,
		fmt.Sprintf("Incorrect code, %d attempts remaining", record.MaxAttempts-record.Attempts),
		comms.ErrorValidation).
		SetAttempts(record.Attempts, record.MaxAttempts)
}

func (s *Service) templateFor(purpose otp.Purpose) string {
	switch purpose {
	case otp.PurposeLogin:
		return tmplLogin
	case otp.PurposePasswordReset:
		return tmplPasswordReset
	default:
		return tmplRegistration
	}
}

func (s *Service) mintSessionToken(e164 string, purpose otp.Purpose) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     e164,
		"purpose": string(purpose),
		"iat":     now.Unix(),
		"exp":     now.Add(s.opts.TokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.JWTSecret))
}
