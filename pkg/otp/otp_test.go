package otp_test

import (
	"testing"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/otp"
)

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := otp.GenerateCode(6)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit %q", code, r)
			}
		}
	}
}

func TestHashAndVerifyCode(t *testing.T) {
	hash := otp.HashCode("123456", "secret")

	if !otp.VerifyCode("123456", "secret", hash) {
		t.Fatal("correct code must verify")
	}
	if otp.VerifyCode("123457", "secret", hash) {
		t.Fatal("wrong code must not verify")
	}
	if otp.VerifyCode("123456", "other-secret", hash) {
		t.Fatal("wrong secret must not verify")
	}
	if otp.VerifyCode("123456", "secret", "not-hex") {
		t.Fatal("malformed stored hash must not verify")
	}
}

func TestRecord_TerminalStates(t *testing.T) {
	r := &otp.Record{
		MaxAttempts: 3,
		ExpiresAt:   time.Now().Add(5 * time.Minute),
	}
	if r.IsTerminal() {
		t.Fatal("fresh record must not be terminal")
	}

	r.Attempts = 3
	if !r.IsExhausted() || !r.IsTerminal() {
		t.Fatal("record at attempt ceiling must be exhausted and terminal")
	}

	r = &otp.Record{MaxAttempts: 3, ExpiresAt: time.Now().Add(-time.Second)}
	if !r.IsExpired() || !r.IsTerminal() {
		t.Fatal("past-expiry record must be expired and terminal")
	}

	r = &otp.Record{MaxAttempts: 3, ExpiresAt: time.Now().Add(time.Minute), Verified: true}
	if !r.IsTerminal() {
		t.Fatal("verified record must be terminal")
	}
}

func TestPurpose_Valid(t *testing.T) {
	for _, p := range []otp.Purpose{otp.PurposeRegistration, otp.PurposeLogin, otp.PurposePasswordReset} {
		if !p.Valid() {
			t.Fatalf("purpose %q should be valid", p)
		}
	}
	if otp.Purpose("promo").Valid() {
		t.Fatal("unknown purpose should be invalid")
	}
}
