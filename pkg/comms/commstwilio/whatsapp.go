package commstwilio

import (
	"context"
	"strings"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/logx"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// WhatsAppChannel sends WhatsApp messages via Twilio. One send per call;
// retry orchestration lives in the caller. The injected breaker guards the
// provider: after repeated failures sends short-circuit without hitting
// the API.
type WhatsAppChannel struct {
	client  *twilio.RestClient
	from    string
	breaker *comms.CircuitBreaker
}

// NewWhatsAppChannel creates the WhatsApp adapter.
func NewWhatsAppChannel(client *twilio.RestClient, from string, breaker *comms.CircuitBreaker) *WhatsAppChannel {
	return &WhatsAppChannel{client: client, from: from, breaker: breaker}
}

// Service implements comms.Channel.
func (w *WhatsAppChannel) Service() comms.Service {
	return comms.ServiceWhatsApp
}

// Send implements comms.Channel. msg.To must be an E.164 phone number.
func (w *WhatsAppChannel) Send(ctx context.Context, msg comms.Message) *comms.Result {
	allowed, err := w.breaker.Allow(ctx, comms.ServiceWhatsApp)
	if err != nil {
		logx.WithError(err).Warn("whatsapp: breaker store unavailable, sending anyway")
	}
	if !allowed {
		return comms.FailWithType(comms.ServiceWhatsApp,
			"WhatsApp delivery temporarily suspended", comms.ErrorServiceUnavailable).
			SetCircuitOpen()
	}

	to := msg.To
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(w.from)
	params.SetTo(to)
	params.SetBody(msg.Body)

	resp, err := w.client.Api.CreateMessage(params)
	if err != nil {
		if open, _ := w.breaker.OnFailure(ctx, comms.ServiceWhatsApp); open {
			logx.Warn("whatsapp: circuit breaker opened")
		}
		result := failureFromError(comms.ServiceWhatsApp, err)
		logx.WithFields(logx.Fields{
			"error_type": result.ErrorType.String(),
			"error_code": result.ErrorCode,
			"retryable":  result.Retryable,
		}).Error("whatsapp: send failed")
		return result
	}

	if err := w.breaker.OnSuccess(ctx, comms.ServiceWhatsApp); err != nil {
		logx.WithError(err).Warn("whatsapp: failed to reset breaker")
	}

	result := comms.Succeed(comms.ServiceWhatsApp, "WhatsApp message sent")
	if resp.Sid != nil {
		result.WithMeta(comms.MetaMessageID, *resp.Sid)
	}
	return result
}
