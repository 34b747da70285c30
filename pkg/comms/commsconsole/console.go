// Package commsconsole provides a dev-mode channel that logs messages via
// logx instead of sending them. OTP codes stay verifiable without a real
// provider account.
package commsconsole

import (
	"context"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/logx"
)

// ConsoleChannel prints messages to the terminal. Intended for development
// and testing.
type ConsoleChannel struct {
	service comms.Service
}

// NewConsoleChannel creates a console channel reporting as the given service.
func NewConsoleChannel(service comms.Service) *ConsoleChannel {
	return &ConsoleChannel{service: service}
}

// Service implements comms.Channel.
func (c *ConsoleChannel) Service() comms.Service {
	return c.service
}

// Send implements comms.Channel by logging the message.
func (c *ConsoleChannel) Send(_ context.Context, msg comms.Message) *comms.Result {
	logx.WithFields(logx.Fields{
		"service": c.service.String(),
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("console: message sent (dev mode)")
	logx.Debugf("console: body:\n%s", msg.Body)

	return comms.Succeed(c.service, "Message logged (dev mode)")
}
