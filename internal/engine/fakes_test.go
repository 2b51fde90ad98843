package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"spendsync/internal/core"
	"spendsync/internal/engine"
	"spendsync/internal/storage/memory"
)

var testNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

// fakeFeed serves scripted pages keyed by cursor. An unknown cursor yields an
// empty page that keeps the cursor.
type fakeFeed struct {
	mu      sync.Mutex
	pages   map[string]engine.Batch
	errs    map[string]error // by access token
	details map[string]core.FeedRecord
	calls   int

	// lookupErr, when set, fails every Lookup.
	lookupErr error

	// block, when set, holds every fetch until closed; entered is signalled
	// as each fetch starts waiting.
	block   chan struct{}
	entered chan struct{}
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		pages:   make(map[string]engine.Batch),
		errs:    make(map[string]error),
		details: make(map[string]core.FeedRecord),
	}
}

func (f *fakeFeed) setPage(cursor string, b engine.Batch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[cursor] = b
}

func (f *fakeFeed) FetchBatch(ctx context.Context, token, cursor string) (engine.Batch, error) {
	f.mu.Lock()
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if block != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-block:
		case <-ctx.Done():
			return engine.Batch{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[token]; err != nil {
		return engine.Batch{}, err
	}
	if b, ok := f.pages[cursor]; ok {
		return b, nil
	}
	return engine.Batch{NextCursor: cursor}, nil
}

func (f *fakeFeed) Lookup(_ context.Context, _ string, id string) (core.FeedRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return core.FeedRecord{}, f.lookupErr
	}
	rec, ok := f.details[id]
	if !ok {
		return core.FeedRecord{}, engine.ErrTransactionNotFound
	}
	return rec, nil
}

func (f *fakeFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sentMessage struct {
	to, body string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (m *fakeMessenger) Send(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{to, body})
	return nil
}

func (m *fakeMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

type fakeArchiver struct {
	mu        sync.Mutex
	snapshots []core.LedgerSnapshot
}

func (a *fakeArchiver) ArchiveMonth(_ context.Context, _ string, s core.LedgerSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshots = append(a.snapshots, s)
	return nil
}

type recordingTrigger struct {
	mu     sync.Mutex
	phones []string
}

func (r *recordingTrigger) TriggerSync(_ context.Context, phone, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phones = append(r.phones, phone)
	return nil
}

type fakeLinker struct {
	link engine.Link
	err  error
}

func (l fakeLinker) CreateLinkToken(context.Context, string) (string, error) {
	return "link-sandbox-123", l.err
}

func (l fakeLinker) ExchangePublicToken(context.Context, string) (engine.Link, error) {
	return l.link, l.err
}

type harness struct {
	store     *memory.Store
	feed      *fakeFeed
	messenger *fakeMessenger
	archiver  *fakeArchiver
	trigger   *recordingTrigger
	engine    *engine.Engine
}

func newHarness(t *testing.T, opts ...engine.Option) *harness {
	t.Helper()
	h := &harness{
		store:     memory.New(),
		feed:      newFakeFeed(),
		messenger: &fakeMessenger{},
		archiver:  &fakeArchiver{},
		trigger:   &recordingTrigger{},
	}
	base := []engine.Option{
		engine.WithClock(func() time.Time { return testNow }),
		engine.WithArchiver(h.archiver),
		engine.WithTrigger(h.trigger),
	}
	h.engine = engine.New(h.store, h.feed, h.messenger, append(base, opts...)...)
	return h
}

const phone = "+15550100"

// linkUser stores a linked account with a food budget of 100.
func (h *harness) linkUser(t *testing.T, phone, token string) *core.Account {
	t.Helper()
	acct := core.NewAccount(phone, testNow)
	acct.AccessToken = token
	acct.ItemID = "item-" + token
	require.NoError(t, acct.Ledger.SetLimits(map[core.Category]decimal.Decimal{
		core.FoodAndDrink: decimal.NewFromInt(100),
	}))
	require.NoError(t, h.store.SaveAccount(context.Background(), acct))
	return acct
}

func (h *harness) account(t *testing.T, phone string) *core.Account {
	t.Helper()
	acct, err := h.store.LoadAccount(context.Background(), phone)
	require.NoError(t, err)
	return acct
}

func (h *harness) saveAccount(t *testing.T, acct *core.Account) {
	t.Helper()
	require.NoError(t, h.store.SaveAccount(context.Background(), acct))
}

func record(id, amount, category, date, merchant string) core.FeedRecord {
	when, err := time.Parse(core.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return core.FeedRecord{
		ID:               id,
		RawAmount:        decimal.RequireFromString(amount),
		ProviderCategory: category,
		Date:             when,
		Merchant:         merchant,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
