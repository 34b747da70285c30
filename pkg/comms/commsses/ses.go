// Package commsses implements the email channel on AWS SES.
package commsses

import (
	"context"
	"errors"
	"fmt"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/logx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/smithy-go"
)

// sesCodeTypes maps SES/SDK error codes to the normalized taxonomy. Codes
// not listed here fall back to the generic classifier heuristics.
var sesCodeTypes = map[string]comms.ErrorType{
	"Throttling":                            comms.ErrorRateLimit,
	"ThrottlingException":                   comms.ErrorRateLimit,
	"LimitExceededException":                comms.ErrorRateLimit,
	"MessageRejected":                       comms.ErrorPolicyViolation,
	"AccountSendingPausedException":         comms.ErrorPolicyViolation,
	"MailFromDomainNotVerifiedException":    comms.ErrorValidation,
	"ConfigurationSetDoesNotExistException": comms.ErrorValidation,
	"AccessDenied":                          comms.ErrorAuthentication,
	"InvalidClientTokenId":                  comms.ErrorAuthentication,
	"SignatureDoesNotMatch":                 comms.ErrorAuthentication,
	"ServiceUnavailable":                    comms.ErrorServiceUnavailable,
	"InternalServiceError":                  comms.ErrorServiceUnavailable,
	"RequestTimeout":                        comms.ErrorNetwork,
}

// EmailChannel sends email via AWS SES.
type EmailChannel struct {
	client      *ses.Client
	fromAddress string
	fromName    string
	breaker     *comms.CircuitBreaker
}

// NewEmailChannel creates the SES email adapter.
func NewEmailChannel(client *ses.Client, fromAddress, fromName string, breaker *comms.CircuitBreaker) *EmailChannel {
	return &EmailChannel{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		breaker:     breaker,
	}
}

// Service implements comms.Channel.
func (e *EmailChannel) Service() comms.Service {
	return comms.ServiceEmail
}

// Send implements comms.Channel. msg.To is the recipient email address.
func (e *EmailChannel) Send(ctx context.Context, msg comms.Message) *comms.Result {
	allowed, err := e.breaker.Allow(ctx, comms.ServiceEmail)
	if err != nil {
		logx.WithError(err).Warn("email: breaker store unavailable, sending anyway")
	}
	if !allowed {
		return comms.FailWithType(comms.ServiceEmail,
			"Email delivery temporarily suspended", comms.ErrorServiceUnavailable).
			SetCircuitOpen()
	}

	source := e.fromAddress
	if e.fromName != "" {
		source = fmt.Sprintf("%s <%s>", e.fromName, e.fromAddress)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(source),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(msg.Body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	out, err := e.client.SendEmail(ctx, input)
	if err != nil {
		if open, _ := e.breaker.OnFailure(ctx, comms.ServiceEmail); open {
			logx.Warn("email: circuit breaker opened")
		}
		result := failureFromError(err)
		logx.WithFields(logx.Fields{
			"error_type": result.ErrorType.String(),
			"error_code": result.ErrorCode,
			"retryable":  result.Retryable,
		}).Error("email: send failed")
		return result
	}

	if err := e.breaker.OnSuccess(ctx, comms.ServiceEmail); err != nil {
		logx.WithError(err).Warn("email: failed to reset breaker")
	}

	result := comms.Succeed(comms.ServiceEmail, "Email sent")
	if out.MessageId != nil {
		result.WithMeta(comms.MetaMessageID, *out.MessageId)
	}
	return result
}

// failureFromError converts an SES SDK error into a classified failure
// result, preferring the explicit SES code table over heuristics.
func failureFromError(err error) *comms.Result {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if errType, ok := sesCodeTypes[code]; ok {
			result := comms.FailWithType(comms.ServiceEmail, apiErr.ErrorMessage(), errType)
			result.ErrorCode = code
			return result
		}
		return comms.Fail(comms.ServiceEmail, apiErr.ErrorMessage(), code)
	}
	return comms.Fail(comms.ServiceEmail, err.Error(), "")
}
