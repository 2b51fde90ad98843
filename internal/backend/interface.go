package backend

import (
	"context"
	"errors"

	"spendsync/internal/amqp"
	"spendsync/internal/engine"
	"spendsync/internal/feed"
	"spendsync/internal/messaging/twilio"
	"spendsync/internal/sheets"
)

// Store is an account store the daemon can health-check and close.
type Store interface {
	engine.Store
	Ping(ctx context.Context) error
	Close() error
}

// Archive receives closed months and reads them back.
type Archive interface {
	sheets.Archiver
	sheets.ArchiveReader
}

// Factory creates the service's outbound adapters from configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (Store, error)
	CreateFeed(config Config) (*feed.Client, error)
	CreateMessenger(config Config) (engine.Messenger, error)
	// CreateArchive returns nil when archiving is disabled.
	CreateArchive(ctx context.Context, config Config) (Archive, error)
	// CreateBroker returns nil when AMQP is not configured.
	CreateBroker(config Config) (*amqp.Client, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Feed   feed.Config
	Twilio twilio.Config

	GoogleSpreadsheetID   string
	GoogleLedgerSheetName string
}

// BackendType names an account store implementation.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Services bundles the adapters a process runs with.
type Services struct {
	Store     Store
	Feed      *feed.Client
	Messenger engine.Messenger
	Archive   Archive
	Broker    *amqp.Client
}

// Close releases the broker and the store.
func (s *Services) Close() error {
	var errs []error
	if s.Broker != nil {
		errs = append(errs, s.Broker.Close())
	}
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	return errors.Join(errs...)
}
