package twilio

import (
	"fmt"

	"github.com/idowu-gb/MAD-Project/server/logger"
	"github.com/idowu-gb/MAD-Project/shared"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

type ClientWrapper struct {
	client *twilio.RestClient
	config shared.TwilioConfig
	logg   *zap.SugaredLogger
}

// NewClient returns an SMS client for the configured messaging service.
// With config.DryRun set, messages are logged instead of sent.
func NewClient(config shared.TwilioConfig) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{
		client: client,
		config: config,
		logg:   logger.NewLogger(),
	}
}

func (cw *ClientWrapper) SendMessage(to, msg string) error {
	if cw.config.DryRun {
		cw.logg.Infof("%v to=%v body=%q", logger.Yellow("[twilio dry-run]"), to, msg)
		return nil
	}

	params := &openapi.CreateMessageParams{}
	params.SetMessagingServiceSid(cw.config.MessagingServiceSid)
	params.SetTo(to)
	params.SetBody(msg)

	resp, err := cw.client.ApiV2010.CreateMessage(params)
	if err != nil {
		return err
	}

	if resp.ErrorMessage != nil {
		return fmt.Errorf("failed to send message to %v: %v", to, *resp.ErrorMessage)
	}

	return nil
}
