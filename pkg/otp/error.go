package otp

import (
	"net/http"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("OTP")

var CodeNoActiveOTP = ErrRegistry.Register("NO_ACTIVE_OTP", errx.TypeNotFound, http.StatusNotFound, "No active OTP for this phone")

// ErrNoActiveOTP is the repository's "not found" error. Verification
// outcomes (wrong code, expired, exhausted) are reported through the
// delivery result envelope, not as errors.
func ErrNoActiveOTP() *errx.Error { return ErrRegistry.New(CodeNoActiveOTP) }
