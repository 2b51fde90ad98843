package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spendsync/internal/config"
	"spendsync/internal/core"
	"spendsync/internal/messaging"
	sheetmem "spendsync/internal/sheets/memory"
	"spendsync/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		DataBackend:           "sqlite",
		SQLiteDBPath:          "/tmp/spendsync.db",
		PlaidClientID:         "client",
		PlaidSecret:           "secret",
		PlaidEnv:              "sandbox",
		SyncPageSize:          250,
		TwilioAccountSID:      "AC123",
		TwilioAuthToken:       "token",
		TwilioPhoneNumber:     "+15550000",
		GoogleLedgerSheetName: "Ledger",
	}

	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != app.SQLiteDBPath {
		t.Errorf("store config = %+v", cfg)
	}
	if cfg.Feed.ClientID != "client" || cfg.Feed.PageSize != 250 || cfg.Feed.LookupWindow == 0 {
		t.Errorf("feed config = %+v", cfg.Feed)
	}
	if cfg.Twilio.From != "+15550000" {
		t.Errorf("twilio config = %+v", cfg.Twilio)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("unknown backend should be rejected")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("nil config should be rejected")
	}
}

func TestCreateStore(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	mem, err := f.CreateStore(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	if err := mem.SaveAccount(ctx, core.NewAccount("+15550100", testTime)); err != nil {
		t.Fatalf("SaveAccount() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "spendsync.db")
	sqlite, err := f.CreateStore(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	defer sqlite.Close()
	if _, ok := sqlite.(*storage.SQLiteRepository); !ok {
		t.Errorf("sqlite backend returned %T", sqlite)
	}
	if err := sqlite.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	if _, err := f.CreateStore(ctx, Config{Type: SQLiteBackend}); err == nil {
		t.Error("sqlite without a path should fail")
	}
}

func TestCreateMessenger_LogsWithoutTwilio(t *testing.T) {
	m, err := NewFactory(nil).CreateMessenger(Config{})
	if err != nil {
		t.Fatalf("CreateMessenger() error = %v", err)
	}
	if _, ok := m.(*messaging.LogMessenger); !ok {
		t.Errorf("messenger = %T, want *messaging.LogMessenger", m)
	}
}

func TestCreateArchive(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	a, err := f.CreateArchive(ctx, Config{Type: SQLiteBackend})
	if err != nil || a != nil {
		t.Errorf("sqlite without spreadsheet: archive=%v err=%v, want nil", a, err)
	}

	a, err = f.CreateArchive(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateArchive() error = %v", err)
	}
	if _, ok := a.(*sheetmem.Store); !ok {
		t.Errorf("memory backend archive = %T", a)
	}
}

func TestCreateServices(t *testing.T) {
	svc, err := CreateServices(context.Background(), NewFactory(nil), Config{Type: MemoryBackend}, Needs{
		Messenger: true,
		Archive:   true,
		Broker:    true,
	})
	if err != nil {
		t.Fatalf("CreateServices() error = %v", err)
	}
	defer svc.Close()

	if svc.Store == nil || svc.Messenger == nil || svc.Archive == nil {
		t.Errorf("services = %+v", svc)
	}
	if svc.Broker != nil {
		t.Error("no AMQP URL means no broker")
	}
	if svc.Feed != nil {
		t.Error("feed was not requested")
	}
}

func TestCreateServices_FeedNeedsCredentials(t *testing.T) {
	_, err := CreateServices(context.Background(), NewFactory(nil), Config{Type: MemoryBackend}, Needs{Feed: true})
	if err == nil {
		t.Error("feed without Plaid credentials should fail")
	}
}

var testTime = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
