package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/shopAuth/internal/logging"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// ErrTwilioConfig reports missing Twilio credentials.
var ErrTwilioConfig = errors.New("twilio: account sid, auth token and sender number are required")

// TwilioConfig holds the REST credentials and the sending number.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

type messageAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Twilio sends each message as one SMS.
type Twilio struct {
	api    messageAPI
	from   string
	logger *zap.Logger
}

// NewTwilio builds a notifier backed by the Twilio REST client.
func NewTwilio(cfg TwilioConfig, logger *zap.Logger) (*Twilio, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" || strings.TrimSpace(cfg.AuthToken) == "" || strings.TrimSpace(cfg.From) == "" {
		return nil, ErrTwilioConfig
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilio(client.Api, cfg.From, logger), nil
}

func newTwilio(api messageAPI, from string, logger *zap.Logger) *Twilio {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Twilio{api: api, from: from, logger: logger.Named("twilio")}
}

type sendResult struct {
	msg *openapi.ApiV2010Message
	err error
}

// Send creates the message. The REST client has no context support, so a
// cancelled ctx returns early and leaves the request to finish on its own.
func (t *Twilio) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	done := make(chan sendResult, 1)
	go func() {
		msg, err := t.api.CreateMessage(params)
		done <- sendResult{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("twilio: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("twilio: %w", res.err)
		}
		sid := ""
		if res.msg != nil && res.msg.Sid != nil {
			sid = *res.msg.Sid
		}
		t.logger.Debug("sms queued", zap.String("to", logging.MaskPhone(to)), zap.String("message_sid", sid))
		return nil
	}
}
