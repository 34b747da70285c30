package otpsrv_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/otp"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/otp/otpinfra"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/otp/otpsrv"
	"github.com/golang-jwt/jwt/v5"
)

var codePattern = regexp.MustCompile(`\d{6}`)

// captureChannel records sent messages and returns a scripted outcome.
type captureChannel struct {
	messages []comms.Message
	fail     bool
}

func (c *captureChannel) Service() comms.Service { return comms.ServiceWhatsApp }

func (c *captureChannel) Send(_ context.Context, msg comms.Message) *comms.Result {
	c.messages = append(c.messages, msg)
	if c.fail {
		return comms.FailWithType(comms.ServiceWhatsApp, "provider down", comms.ErrorServiceUnavailable)
	}
	return comms.Succeed(comms.ServiceWhatsApp, "sent")
}

func (c *captureChannel) lastCode(t *testing.T) string {
	t.Helper()
	if len(c.messages) == 0 {
		t.Fatal("no message was sent")
	}
	code := codePattern.FindString(c.messages[len(c.messages)-1].Body)
	if code == "" {
		t.Fatalf("no code found in message body %q", c.messages[len(c.messages)-1].Body)
	}
	return code
}

type fixture struct {
	svc     *otpsrv.Service
	repo    *otpinfra.MemoryRepository
	channel *captureChannel
}

func newFixture(opts otpsrv.Options) *fixture {
	if opts.Secret == "" {
		opts.Secret = "test-secret"
	}
	repo := otpinfra.NewMemoryRepository()
	channel := &captureChannel{}
	svc := otpsrv.NewService(repo, otpinfra.NewMemoryRateLimiter(), channel, opts)
	return &fixture{svc: svc, repo: repo, channel: channel}
}

func TestOTP_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(otpsrv.Options{JWTSecret: "jwt-secret"})

	sent := f.svc.SendOTP(ctx, "+91", "9876543210", otp.PurposeLogin)
	if !sent.Success {
		t.Fatalf("send failed: %+v", sent)
	}
	if sent.ExpiresIn != 300 {
		t.Fatalf("ExpiresIn = %d, want 300", sent.ExpiresIn)
	}

	code := f.channel.lastCode(t)

	verified := f.svc.VerifyOTP(ctx, "+91", "9876543210", code, otp.PurposeLogin)
	if !verified.Success {
		t.Fatalf("verify failed: %+v", verified)
	}

	// Successful verification mints a session token.
	tokenStr, _ := verified.Metadata[comms.MetaSessionToken].(string)
	if tokenStr == "" {
		t.Fatal("expected session token in metadata")
	}
	token, err := jwt.Parse(tokenStr, func(*jwt.Token) (interface{}, error) {
		return []byte("jwt-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("session token does not validate: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["sub"] != "+919876543210" {
		t.Fatalf("token sub = %v, want +919876543210", claims["sub"])
	}

	// The same code must not verify twice.
	again := f.svc.VerifyOTP(ctx, "+91", "9876543210", code, otp.PurposeLogin)
	if again.Success {
		t.Fatal("second verify with a consumed code must fail")
	}
}

func TestOTP_WrongCodeExhaustsAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(otpsrv.Options{})

	if r := f.svc.SendOTP(ctx, "+91", "9876543210", otp.PurposeRegistration); !r.Success {
		t.Fatalf("send failed: %+v", r)
	}
	code := f.channel.lastCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 1; i <= 3; i++ {
		r := f.svc.VerifyOTP(ctx, "+91", "9876543210", wrong, otp.PurposeRegistration)
		if r.Success {
			t.Fatalf("wrong code verified on attempt %d", i)
		}
		if used, _ := r.Metadata[comms.MetaAttemptsUsed].(int); used != i {
			t.Fatalf("attempt %d: attempts_used = %v", i, r.Metadata[comms.MetaAttemptsUsed])
		}
	}

	// Budget exhausted: even the correct code is rejected now.
	r := f.svc.VerifyOTP(ctx, "+91", "9876543210", code, otp.PurposeRegistration)
	if r.Success {
		t.Fatal("correct code must not verify after attempts are exhausted")
	}
	if !r.Expired {
		t.Fatal("exhausted record must be reported with the expired flag")
	}
}

func TestOTP_ExpiredCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(otpsrv.Options{})

	code := "123456"
	record := &otp.Record{
		ID:          "expired-1",
		Phone:       "+919876543210",
		CountryCode: "+91",
		CodeHash:    otp.HashCode(code, "test-secret"),
		Purpose:     otp.PurposeLogin,
		MaxAttempts: 3,
		ExpiresAt:   time.Now().Add(-time.Minute),
		CreatedAt:   time.Now().Add(-10 * time.Minute),
	}
	if err := f.repo.Upsert(ctx, record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := f.svc.VerifyOTP(ctx, "+91", "9876543210", code, otp.PurposeLogin)
	if r.Success {
		t.Fatal("expired code must not verify")
	}
	if !r.Expired {
		t.Fatal("expected expired flag on the result")
	}
}

func TestOTP_RateLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(otpsrv.Options{HourlyCap: 2})

	for i := 0; i < 2; i++ {
		if r := f.svc.SendOTP(ctx, "+91", "9876543210", otp.PurposeLogin); !r.Success {
			t.Fatalf("send %d failed: %+v", i+1, r)
		}
	}
	lastCode := f.channel.lastCode(t)

	r := f.svc.SendOTP(ctx, "+91", "9876543210", otp.PurposeLogin)
	if r.Success {
		t.Fatal("send over the cap must fail")
	}
	if !r.RateLimited {
		t.Fatal("expected rateLimited flag")
	}
	if r.ErrorType != comms.ErrorRateLimit {
		t.Fatalf("ErrorType = %q, want rate_limit", r.ErrorType)
	}

	// The rate-limited call must not have replaced the stored record: the
	// code from the last successful send still verifies.
	v := f.svc.VerifyOTP(ctx, "+91", "9876543210", lastCode, otp.PurposeLogin)
	if !v.Success {
		t.Fatalf("record was disturbed by rate-limited send: %+v", v)
	}
}

func TestOTP_RateLimitIsPerPurpose(t *testing.T) {
	ctx := context.Background()
	f := newFixture(otpsrv.Options{HourlyCap: 1})

	if r := f.svc.SendOTP(ctx, "+91", "9876543210", otp.PurposeLogin); !r.Success {
		t.Fatalf("send failed: %+v", r)
	}
	// Same phone, different purpose: separate counter.
	if r := f.svc.SendOTP(ctx, "+91", "9876543210", otp.PurposePasswordReset); !r.Success {
		t.Fatalf("other-purpose send failed: %+v", r)
	}
}

func TestOTP_DeliveryFailureKeepsRecordValid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(otpsrv.Options{})
	f.channel.fail = true

	r := f.svc.SendOTP(ctx, "+91", "9876543210", otp.PurposeLogin)
	if r.Success {
		t.Fatal("expected delivery failure to surface")
	}
	if failed, _ := r.Metadata[comms.MetaDeliveryFailed].(bool); !failed {
		t.Fatal("expected delivery_failed metadata")
	}

	// The record survived the failed delivery.
	code := f.channel.lastCode(t)
	v := f.svc.VerifyOTP(ctx, "+91", "9876543210", code, otp.PurposeLogin)
	if !v.Success {
		t.Fatalf("record should remain valid after delivery failure: %+v", v)
	}
}

func TestOTP_NewSendReplacesPriorCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(otpsrv.Options{})

	if r := f.svc.SendOTP(ctx, "+91", "9876543210", otp.PurposeLogin); !r.Success {
		t.Fatalf("send failed: %+v", r)
	}
	firstCode := f.channel.lastCode(t)

	if r := f.svc.SendOTP(ctx, "+91", "9876543210", otp.PurposeLogin); !r.Success {
		t.Fatalf("second send failed: %+v", r)
	}
	secondCode := f.channel.lastCode(t)

	if firstCode != secondCode {
		if v := f.svc.VerifyOTP(ctx, "+91", "9876543210", firstCode, otp.PurposeLogin); v.Success {
			t.Fatal("replaced code must not verify")
		}
	}
	if v := f.svc.VerifyOTP(ctx, "+91", "9876543210", secondCode, otp.PurposeLogin); !v.Success {
		t.Fatalf("latest code should verify: %+v", v)
	}
}

func TestOTP_InvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(otpsrv.Options{})

	if r := f.svc.SendOTP(ctx, "+91", "9876543210", otp.Purpose("promo")); r.Success || r.ErrorType != comms.ErrorValidation {
		t.Fatalf("unknown purpose should fail validation, got %+v", r)
	}
	if r := f.svc.SendOTP(ctx, "+91", "123", otp.PurposeLogin); r.Success || r.ErrorType != comms.ErrorValidation {
		t.Fatalf("bad phone should fail validation, got %+v", r)
	}
	if r := f.svc.VerifyOTP(ctx, "+91", "5550000000", "123456", otp.PurposeLogin); r.Success {
		t.Fatal("verify without a prior send must fail")
	}
}
