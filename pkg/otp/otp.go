package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/sha3"
)

// Purpose is the reason an OTP was issued. Verification only succeeds
// against a record issued for the same purpose.
type Purpose string

const (
	PurposeRegistration  Purpose = "registration"
	PurposeLogin         Purpose = "login"
	PurposePasswordReset Purpose = "password_reset"
)

// Valid reports whether the purpose is one of the known values.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeRegistration, PurposeLogin, PurposePasswordReset:
		return true
	}
	return false
}

// Record is one issued one-time code. The plaintext code is never stored:
// CodeHash holds an HMAC over the code, keyed by the server secret.
//
// A record is terminal once verified, exhausted or expired; terminal
// records never re-validate. A new send for the same phone+purpose
// replaces the prior record.
type Record struct {
	ID          string
	Phone       string // E.164
	CountryCode string
	CodeHash    string
	Purpose     Purpose
	Verified    bool
	Attempts    int
	MaxAttempts int
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// IsExpired reports whether the record is past its validity window.
func (r *Record) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// IsExhausted reports whether the attempt budget is used up.
func (r *Record) IsExhausted() bool {
	return r.Attempts >= r.MaxAttempts
}

// IsTerminal reports whether the record can never validate again.
func (r *Record) IsTerminal() bool {
	return r.Verified || r.IsExhausted() || r.IsExpired()
}

// GenerateCode generates a cryptographically secure numeric code of the
// given length, zero-padded.
func GenerateCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(fmt.Sprintf("%%0%dd", length), n), nil
}

// HashCode computes the hex HMAC-SHA3-256 of a code under the server
// secret. Only this hash is ever persisted.
func HashCode(code, secret string) string {
	mac := hmac.New(sha3.New256, []byte(secret))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCode compares a submitted code against a stored hash in constant
// time, so attempt timing leaks nothing about how close a guess was.
func VerifyCode(code, secret, storedHash string) bool {
	stored, err := hex.DecodeString(storedHash)
	if err != nil {
		return false
	}

	mac := hmac.New(sha3.New256, []byte(secret))
	mac.Write([]byte(code))
	return hmac.Equal(mac.Sum(nil), stored)
}
