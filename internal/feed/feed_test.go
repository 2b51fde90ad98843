package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsync/internal/engine"
)

type fakeAPI struct {
	pages     map[string]syncPage
	syncErr   error
	history   []rawTransaction
	listCalls int
	lastLink  linkRequest
}

func (f *fakeAPI) sync(_ context.Context, _, cursor string, _ int32) (syncPage, error) {
	if f.syncErr != nil {
		return syncPage{}, f.syncErr
	}
	return f.pages[cursor], nil
}

func (f *fakeAPI) list(_ context.Context, _ string, _, _ time.Time, offset, count int32) ([]rawTransaction, int32, error) {
	f.listCalls++
	end := min(int(offset+count), len(f.history))
	if int(offset) >= end {
		return nil, int32(len(f.history)), nil
	}
	return f.history[offset:end], int32(len(f.history)), nil
}

func (f *fakeAPI) linkToken(_ context.Context, req linkRequest) (string, error) {
	f.lastLink = req
	return "link-sandbox-abc", nil
}

func (f *fakeAPI) exchange(_ context.Context, publicToken string) (engine.Link, error) {
	return engine.Link{AccessToken: "access-" + publicToken, ItemID: "item-" + publicToken}, nil
}

func TestRawTransaction_Record(t *testing.T) {
	rec := rawTransaction{
		id: "tx1", amount: 12.345, date: "2026-10-03",
		merchant: "  ", name: "SQ *BLUE BOTTLE", category: "FOOD_AND_DRINK", pending: true,
	}.record()

	assert.Equal(t, "tx1", rec.ID)
	assert.True(t, decimal.RequireFromString("12.35").Equal(rec.RawAmount))
	assert.Equal(t, "SQ *BLUE BOTTLE", rec.Merchant)
	assert.Equal(t, time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, "FOOD_AND_DRINK", rec.ProviderCategory)
	assert.True(t, rec.Pending)

	bad := rawTransaction{id: "tx2", date: "03/10/2026"}.record()
	assert.True(t, bad.Date.IsZero())
}

func TestClassifyCode(t *testing.T) {
	cause := errors.New("400 Bad Request")

	assert.ErrorIs(t, classifyCode("ITEM_LOGIN_REQUIRED", "login required", cause), engine.ErrCredentialInvalid)
	assert.ErrorIs(t, classifyCode("INVALID_ACCESS_TOKEN", "", cause), engine.ErrCredentialInvalid)
	assert.ErrorIs(t, classifyCode("INVALID_FIELD", "cursor not associated with access_token", cause), engine.ErrCursorInvalid)

	transient := classifyCode("TRANSACTIONS_SYNC_MUTATION_DURING_PAGINATION", "restart", cause)
	assert.ErrorIs(t, transient, cause)
	assert.NotErrorIs(t, transient, engine.ErrCredentialInvalid)
	assert.NotErrorIs(t, transient, engine.ErrCursorInvalid)

	assert.NotErrorIs(t, classifyCode("INVALID_FIELD", "count must be positive", cause), engine.ErrCursorInvalid)
	assert.ErrorIs(t, classifyCode("", "", cause), cause)
}

func TestClient_FetchBatchFillsDetailCache(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{pages: map[string]syncPage{
		"": {
			added:      []rawTransaction{{id: "a", amount: 4.5, date: "2026-10-01", merchant: "Cafe"}},
			modified:   []rawTransaction{{id: "m", amount: 9, date: "2026-10-02", name: "Store"}},
			removed:    []string{"r"},
			nextCursor: "c1",
			hasMore:    true,
		},
	}}
	c := newClient(fake, Config{})

	batch, err := c.FetchBatch(ctx, "tok", "")
	require.NoError(t, err)
	require.Len(t, batch.Added, 1)
	require.Len(t, batch.Modified, 1)
	assert.Equal(t, []string{"r"}, batch.Removed)
	assert.Equal(t, "c1", batch.NextCursor)
	assert.True(t, batch.HasMore)

	rec, err := c.Lookup(ctx, "tok", "a")
	require.NoError(t, err)
	assert.Equal(t, "Cafe", rec.Merchant)
	assert.Zero(t, fake.listCalls, "served from cache")
}

func TestClient_LookupFallsBackToHistory(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{}
	for i := 0; i < 5; i++ {
		fake.history = append(fake.history, rawTransaction{id: string(rune('a' + i)), amount: 1, date: "2026-10-01"})
	}
	c := newClient(fake, Config{PageSize: 2})

	rec, err := c.Lookup(ctx, "tok", "e")
	require.NoError(t, err)
	assert.Equal(t, "e", rec.ID)
	assert.Equal(t, 3, fake.listCalls)

	_, err = c.Lookup(ctx, "tok", "zz")
	assert.ErrorIs(t, err, engine.ErrTransactionNotFound)

	calls := fake.listCalls
	_, err = c.Lookup(ctx, "tok", "e")
	require.NoError(t, err)
	assert.Equal(t, calls, fake.listCalls, "second lookup is cached")
}

func TestClient_FetchBatchError(t *testing.T) {
	fake := &fakeAPI{syncErr: errors.New("dial tcp: connection refused")}
	c := newClient(fake, Config{})

	_, err := c.FetchBatch(context.Background(), "tok", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, engine.ErrCredentialInvalid)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestClient_Linking(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAPI{}
	c := newClient(fake, Config{WebhookURL: "https://example.test/api/plaid/webhook"})

	token, err := c.CreateLinkToken(ctx, "+15550100")
	require.NoError(t, err)
	assert.Equal(t, "link-sandbox-abc", token)
	assert.Equal(t, linkRequest{
		clientName: "SpendSync",
		userID:     "+15550100",
		webhook:    "https://example.test/api/plaid/webhook",
	}, fake.lastLink)

	link, err := c.ExchangePublicToken(ctx, "pub")
	require.NoError(t, err)
	assert.Equal(t, engine.Link{AccessToken: "access-pub", ItemID: "item-pub"}, link)

	_, err = c.ExchangePublicToken(ctx, "")
	assert.Error(t, err)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	_, err = NewClient(Config{ClientID: "id", Secret: "s", Environment: "staging"})
	assert.Error(t, err)

	c, err := NewClient(Config{ClientID: "id", Secret: "s", Environment: "sandbox"})
	require.NoError(t, err)
	assert.NotNil(t, c.DetailCache())
}
