package commstwilio

import (
	"context"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/logx"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSChannel sends plain SMS via Twilio. Shares the breaker pattern with
// the WhatsApp adapter but keeps its own per-channel breaker state.
type SMSChannel struct {
	client  *twilio.RestClient
	from    string
	breaker *comms.CircuitBreaker
}

// NewSMSChannel creates the SMS adapter.
func NewSMSChannel(client *twilio.RestClient, from string, breaker *comms.CircuitBreaker) *SMSChannel {
	return &SMSChannel{client: client, from: from, breaker: breaker}
}

// Service implements comms.Channel.
func (s *SMSChannel) Service() comms.Service {
	return comms.ServiceSMS
}

// Send implements comms.Channel. msg.To must be an E.164 phone number.
func (s *SMSChannel) Send(ctx context.Context, msg comms.Message) *comms.Result {
	allowed, err := s.breaker.Allow(ctx, comms.ServiceSMS)
	if err != nil {
		logx.WithError(err).Warn("sms: breaker store unavailable, sending anyway")
	}
	if !allowed {
		return comms.FailWithType(comms.ServiceSMS,
			"SMS delivery temporarily suspended", comms.ErrorServiceUnavailable).
			SetCircuitOpen()
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(msg.To)
	params.SetBody(msg.Body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		if open, _ := s.breaker.OnFailure(ctx, comms.ServiceSMS); open {
			logx.Warn("sms: circuit breaker opened")
		}
		result := failureFromError(comms.ServiceSMS, err)
		logx.WithFields(logx.Fields{
			"error_type": result.ErrorType.String(),
			"error_code": result.ErrorCode,
			"retryable":  result.Retryable,
		}).Error("sms: send failed")
		return result
	}

	if err := s.breaker.OnSuccess(ctx, comms.ServiceSMS); err != nil {
		logx.WithError(err).Warn("sms: failed to reset breaker")
	}

	result := comms.Succeed(comms.ServiceSMS, "SMS sent")
	if resp.Sid != nil {
		result.WithMeta(comms.MetaMessageID, *resp.Sid)
	}
	return result
}
