package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsync/internal/core"
	"spendsync/internal/engine"
)

func newTestRepository(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "spendsync.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, path
}

func pending(id, amount, date string) core.PendingTransaction {
	when, err := time.Parse(core.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return core.PendingTransaction{
		ID:       id,
		Amount:   decimal.RequireFromString(amount),
		Category: core.FoodAndDrink,
		Date:     when,
		Merchant: "Deli " + id,
	}
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	now := time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)
	oct := core.Month{Year: 2026, Month: time.October}

	acct := core.NewAccount("+15550100", now)
	acct.AccessToken = "access-sandbox"
	acct.ItemID = "item-1"
	acct.Cursor = "cursor-7"
	acct.Ledger = core.NewLedger(oct)
	require.NoError(t, acct.Ledger.SetLimits(map[core.Category]decimal.Decimal{core.FoodAndDrink: decimal.RequireFromString("100")}))
	require.NoError(t, acct.Ledger.AddSpend(core.FoodAndDrink, decimal.RequireFromString("20.10")))
	require.NoError(t, acct.Ledger.AddSpend(core.Category("shopping"), decimal.RequireFromString("12.50")))
	acct.State = core.AwaitingReply(pending("t1", "5.25", "2026-10-03"))
	t2, t3 := pending("t2", "6.00", "2026-10-04"), pending("t3", "7.00", "2026-10-05")
	acct.Queue = core.NewQueue(core.QueueItem{ID: "t3", Tx: &t3}, core.QueueItem{ID: "bare"}, core.QueueItem{ID: "t2", Tx: &t2})
	acct.MarkResolved("t0", oct)

	require.NoError(t, repo.SaveAccount(ctx, acct))

	got, err := repo.LoadAccount(ctx, "+15550100")
	require.NoError(t, err)
	assert.Equal(t, "access-sandbox", got.AccessToken)
	assert.Equal(t, "item-1", got.ItemID)
	assert.Equal(t, "cursor-7", got.Cursor)
	assert.True(t, now.Equal(got.CreatedAt))
	assert.Equal(t, oct, got.Ledger.Month)
	assert.Equal(t, map[string]core.Month{"t0": oct}, got.Resolved)

	awaiting, ok := got.State.Awaiting()
	require.True(t, ok)
	assert.Equal(t, "t1", awaiting.ID)
	assert.True(t, decimal.RequireFromString("5.25").Equal(awaiting.Amount))
	assert.Equal(t, "Deli t1", awaiting.Merchant)

	items := got.Queue.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "t3", items[0].ID)
	assert.Equal(t, "bare", items[1].ID)
	assert.Nil(t, items[1].Tx)
	require.NotNil(t, items[2].Tx)
	assert.True(t, decimal.RequireFromString("6.00").Equal(items[2].Tx.Amount))
	assert.True(t, t2.Date.Equal(items[2].Tx.Date))

	food := got.Ledger.Entry(core.FoodAndDrink)
	assert.True(t, decimal.RequireFromString("100").Equal(food.Limit))
	assert.True(t, decimal.RequireFromString("20.10").Equal(food.Spent))
	assert.True(t, decimal.RequireFromString("12.50").Equal(got.Ledger.Entry(core.Category("shopping")).Spent))
}

func TestSQLiteRepository_SaveReplacesChildren(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	acct := core.NewAccount("+15550100", time.Now())
	tx := pending("t1", "1.00", "2026-10-01")
	acct.Queue = core.NewQueue(core.QueueItem{ID: "t1", Tx: &tx})
	acct.State = core.AwaitingReply(pending("t0", "2.00", "2026-10-01"))
	require.NoError(t, repo.SaveAccount(ctx, acct))

	acct.Queue.Clear()
	acct.State = core.Idle()
	require.NoError(t, repo.SaveAccount(ctx, acct))

	got, err := repo.LoadAccount(ctx, "+15550100")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Queue.Len())
	assert.True(t, got.State.IsIdle())
	assert.True(t, got.Ledger.Month.IsZero())
}

func TestSQLiteRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	_, err := repo.LoadAccount(ctx, "+10000000")
	assert.ErrorIs(t, err, engine.ErrNotFound)

	for _, phone := range []string{"+15550002", "+15550001"} {
		acct := core.NewAccount(phone, time.Now())
		acct.ItemID = "item" + phone
		acct.AccessToken = "tok"
		require.NoError(t, repo.SaveAccount(ctx, acct))
	}

	phones, err := repo.ListPhones(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"+15550001", "+15550002"}, phones)

	phone, err := repo.FindPhoneByItemID(ctx, "item+15550002")
	require.NoError(t, err)
	assert.Equal(t, "+15550002", phone)

	_, err = repo.FindPhoneByItemID(ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrNotFound)
	_, err = repo.FindPhoneByItemID(ctx, "")
	assert.ErrorIs(t, err, engine.ErrNotFound)

	summaries, err := repo.ListAccountSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.True(t, summaries[0].Linked)
	assert.False(t, summaries[0].Awaiting)

	require.NoError(t, repo.DeleteAccount(ctx, "+15550001"))
	assert.ErrorIs(t, repo.DeleteAccount(ctx, "+15550001"), engine.ErrNotFound)
	_, err = repo.LoadAccount(ctx, "+15550001")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	_, path := newTestRepository(t)

	require.NoError(t, RunMigrations(path))
	version, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}
