package comms

import "context"

// Service identifies the channel that produced a delivery result.
type Service string

const (
	ServiceWhatsApp Service = "whatsapp"
	ServiceEmail    Service = "email"
	ServiceSMS      Service = "sms"
	ServiceOTP      Service = "otp"
)

// String returns the string representation of the service.
func (s Service) String() string {
	return string(s)
}

// Message is one outbound notification. To is a raw recipient address:
// an E.164 phone for WhatsApp/SMS, an email address for email.
type Message struct {
	To      string
	Subject string // Email only
	Body    string
}

// Channel sends one message through one transport provider. Adapters never
// retry internally; they classify provider failures and report them in the
// returned Result so the caller can decide.
type Channel interface {
	Service() Service
	Send(ctx context.Context, msg Message) *Result
}
