package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendsync/internal/core"
	"spendsync/internal/engine"
)

func TestStoreCopiesAccounts(t *testing.T) {
	ctx := context.Background()
	s := New()
	acct := core.NewAccount("+15550001", time.Now())
	acct.ItemID = "item-1"
	acct.Queue.Enqueue(core.QueueItem{ID: "tx1"})
	if err := s.SaveAccount(ctx, acct); err != nil {
		t.Fatalf("save: %v", err)
	}

	acct.Queue.Enqueue(core.QueueItem{ID: "tx2"})
	_ = acct.Ledger.AddSpend(core.Travel, decimal.NewFromInt(5))

	got, err := s.LoadAccount(ctx, "+15550001")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Queue.Len() != 1 {
		t.Errorf("queue leaked through store: len=%d", got.Queue.Len())
	}
	if !got.Ledger.Entry(core.Travel).Spent.IsZero() {
		t.Errorf("ledger leaked through store")
	}

	phone, err := s.FindPhoneByItemID(ctx, "item-1")
	if err != nil || phone != "+15550001" {
		t.Fatalf("find by item: phone=%q err=%v", phone, err)
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.LoadAccount(ctx, "nobody"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("load: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteAccount(ctx, "nobody"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("delete: expected ErrNotFound, got %v", err)
	}
	if _, err := s.FindPhoneByItemID(ctx, ""); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("find: expected ErrNotFound, got %v", err)
	}
}

func TestListPhonesSorted(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, p := range []string{"+3", "+1", "+2"} {
		_ = s.SaveAccount(ctx, core.NewAccount(p, time.Now()))
	}
	phones, _ := s.ListPhones(ctx)
	if len(phones) != 3 || phones[0] != "+1" || phones[2] != "+3" {
		t.Errorf("unexpected phones: %v", phones)
	}
}
