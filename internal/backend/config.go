package backend

import (
	"fmt"

	"spendsync/internal/config"
	"spendsync/internal/feed"
	"spendsync/internal/messaging/twilio"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	feedCfg := feed.DefaultConfig()
	feedCfg.ClientID = appConfig.PlaidClientID
	feedCfg.Secret = appConfig.PlaidSecret
	feedCfg.Environment = appConfig.PlaidEnv
	feedCfg.ClientName = appConfig.PlaidClientName
	feedCfg.WebhookURL = appConfig.PlaidWebhookURL
	feedCfg.RedirectURI = appConfig.PlaidRedirectURI
	feedCfg.PageSize = appConfig.SyncPageSize

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		Feed: feedCfg,
		Twilio: twilio.Config{
			AccountSID: appConfig.TwilioAccountSID,
			AuthToken:  appConfig.TwilioAuthToken,
			From:       appConfig.TwilioPhoneNumber,
		},

		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleLedgerSheetName: appConfig.GoogleLedgerSheetName,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	return nil
}
