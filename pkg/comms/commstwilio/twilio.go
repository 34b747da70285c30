// Package commstwilio implements the WhatsApp and SMS channels on the
// Twilio Programmable Messaging API.
package commstwilio

import (
	"errors"
	"strconv"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
)

// Config holds Twilio credentials and sender identities.
type Config struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string // "whatsapp:+14155238886"
	SMSFrom      string // "+14155238886"
}

// NewRestClient builds a Twilio REST client from the config.
func NewRestClient(cfg Config) *twilio.RestClient {
	return twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
}

// failureFromError converts a Twilio SDK error into a classified failure
// result. Twilio REST errors carry a numeric provider code; anything else
// (transport failures, timeouts) classifies off the message alone.
func failureFromError(service comms.Service, err error) *comms.Result {
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) {
		code := strconv.Itoa(restErr.Code)
		if restErr.Code == 0 {
			code = strconv.Itoa(restErr.Status)
		}
		return comms.Fail(service, restErr.Message, code)
	}
	return comms.Fail(service, err.Error(), "")
}
