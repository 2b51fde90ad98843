// Package twilio sends texts through Twilio and verifies inbound webhook
// signatures.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	twiliosdk "github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"spendsync/internal/engine"
	applog "spendsync/internal/log"
	"spendsync/internal/messaging"
)

type Config struct {
	AccountSID string
	AuthToken  string
	From       string
}

// messageAPI is the part of the Twilio REST client the sender uses.
type messageAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type Sender struct {
	api    messageAPI
	from   string
	logger *slog.Logger
}

var _ engine.Messenger = (*Sender)(nil)

func New(cfg Config) (*Sender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio account sid and auth token are required")
	}
	if cfg.From == "" {
		return nil, errors.New("twilio sender number is required")
	}
	client := twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newSender(client.Api, cfg.From), nil
}

func newSender(api messageAPI, from string) *Sender {
	return &Sender{
		api:    api,
		from:   from,
		logger: applog.WithComponent(slog.Default(), applog.ComponentMessaging),
	}
}

func (s *Sender) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(messaging.Fit(body))

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("send sms to %s: %w", to, err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	s.logger.InfoContext(ctx, "SMS sent", applog.FieldPhone, to, applog.FieldMessageID, sid)
	return nil
}
