package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendsync/internal/amqp"
	"spendsync/internal/engine"
	"spendsync/internal/feed"
	applog "spendsync/internal/log"
	"spendsync/internal/messaging"
	"spendsync/internal/messaging/twilio"
	gsheet "spendsync/internal/sheets/google"
	sheetmem "spendsync/internal/sheets/memory"
	"spendsync/internal/storage"
	"spendsync/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

var _ Factory = (*DefaultFactory)(nil)

func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.WarnContext(ctx, "Using in-memory store, accounts are lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) CreateFeed(config Config) (*feed.Client, error) {
	client, err := feed.NewClient(config.Feed)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transaction feed: %w", err)
	}
	f.logger.Info("Initialized transaction feed", "environment", config.Feed.Environment)
	return client, nil
}

// CreateMessenger returns a Twilio sender, or a messenger that only logs
// when no account is configured.
func (f *DefaultFactory) CreateMessenger(config Config) (engine.Messenger, error) {
	if config.Twilio.AccountSID == "" {
		f.logger.Warn("Twilio not configured, outbound messages are only logged")
		return messaging.NewLogMessenger(applog.WithComponent(f.logger, applog.ComponentMessaging)), nil
	}
	sender, err := twilio.New(config.Twilio)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Twilio sender: %w", err)
	}
	return sender, nil
}

// CreateArchive picks the Google Sheets archive when a spreadsheet is
// configured. The memory backend keeps its archive in memory too; a SQLite
// deployment without a spreadsheet archives nothing.
func (f *DefaultFactory) CreateArchive(ctx context.Context, config Config) (Archive, error) {
	if config.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleLedgerSheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets archive: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets archive", "sheet", config.GoogleLedgerSheetName)
		return client, nil
	}
	if config.Type == MemoryBackend {
		return sheetmem.New(), nil
	}
	return nil, nil
}

func (f *DefaultFactory) CreateBroker(config Config) (*amqp.Client, error) {
	if config.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client, nil
}

// Needs selects which adapters CreateServices builds.
type Needs struct {
	Feed      bool
	Messenger bool
	Archive   bool
	Broker    bool
	// BrokerOptional keeps going without a broker when it cannot be reached.
	BrokerOptional bool
}

// CreateServices builds the store and the requested adapters. On error
// everything already opened is closed.
func CreateServices(ctx context.Context, f Factory, config Config, needs Needs) (*Services, error) {
	svc := &Services{}
	fail := func(err error) (*Services, error) {
		return nil, errors.Join(err, svc.Close())
	}

	var err error
	if svc.Store, err = f.CreateStore(ctx, config); err != nil {
		return nil, err
	}
	if needs.Feed {
		if svc.Feed, err = f.CreateFeed(config); err != nil {
			return fail(err)
		}
	}
	if needs.Messenger {
		if svc.Messenger, err = f.CreateMessenger(config); err != nil {
			return fail(err)
		}
	}
	if needs.Archive {
		if svc.Archive, err = f.CreateArchive(ctx, config); err != nil {
			return fail(err)
		}
	}
	if needs.Broker {
		svc.Broker, err = f.CreateBroker(config)
		switch {
		case err != nil && needs.BrokerOptional:
			slog.WarnContext(ctx, "AMQP unavailable, continuing without broker", applog.FieldError, err)
		case err != nil:
			return fail(err)
		}
	}
	return svc, nil
}
