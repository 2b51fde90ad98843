// Package feed adapts Plaid's transactions sync and Link APIs to the engine.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"

	"spendsync/internal/cache"
	"spendsync/internal/core"
	"spendsync/internal/engine"
	applog "spendsync/internal/log"
)

type Config struct {
	ClientID    string
	Secret      string
	Environment string // "sandbox" or "production"
	ClientName  string
	WebhookURL  string
	RedirectURI string
	PageSize    int
	// LookupWindow bounds how far back Lookup searches for a transaction
	// that is no longer cached.
	LookupWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		Environment:  "sandbox",
		ClientName:   "SpendSync",
		PageSize:     100,
		LookupWindow: 90 * 24 * time.Hour,
	}
}

// api is the subset of Plaid the client calls.
type api interface {
	sync(ctx context.Context, token, cursor string, count int32) (syncPage, error)
	list(ctx context.Context, token string, start, end time.Time, offset, count int32) ([]rawTransaction, int32, error)
	linkToken(ctx context.Context, req linkRequest) (string, error)
	exchange(ctx context.Context, publicToken string) (engine.Link, error)
}

type syncPage struct {
	added, modified []rawTransaction
	removed         []string
	nextCursor      string
	hasMore         bool
}

type linkRequest struct {
	clientName, userID, webhook, redirectURI string
}

// Client implements engine.Feed and engine.Linker.
type Client struct {
	api     api
	cfg     Config
	details *cache.LRUCache[core.FeedRecord]
	now     func() time.Time
	logger  *slog.Logger
}

var (
	_ engine.Feed   = (*Client)(nil)
	_ engine.Linker = (*Client)(nil)
)

func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("plaid client id and secret are required")
	}
	env, err := environment(cfg.Environment)
	if err != nil {
		return nil, err
	}

	pc := plaid.NewConfiguration()
	pc.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	pc.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	pc.UseEnvironment(env)

	return newClient(plaidAPI{client: plaid.NewAPIClient(pc)}, cfg), nil
}

func newClient(a api, cfg Config) *Client {
	def := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.LookupWindow <= 0 {
		cfg.LookupWindow = def.LookupWindow
	}
	if cfg.ClientName == "" {
		cfg.ClientName = def.ClientName
	}
	return &Client{
		api:     a,
		cfg:     cfg,
		details: cache.NewLRUCache[core.FeedRecord](10000, 24*time.Hour),
		now:     time.Now,
		logger:  applog.WithComponent(slog.Default(), applog.ComponentFeed),
	}
}

func environment(name string) (plaid.Environment, error) {
	switch name {
	case "", "sandbox":
		return plaid.Sandbox, nil
	case "production":
		return plaid.Production, nil
	default:
		return "", fmt.Errorf("unknown plaid environment %q", name)
	}
}

// DetailCache exposes the transaction detail cache so it can be registered
// for periodic cleanup.
func (c *Client) DetailCache() cache.Cleaner { return c.details }

func (c *Client) FetchBatch(ctx context.Context, token, cursor string) (engine.Batch, error) {
	start := time.Now()
	page, err := c.api.sync(ctx, token, cursor, int32(c.cfg.PageSize))
	if err != nil {
		err = classify(err)
		c.logger.WarnContext(ctx, "Transactions sync failed",
			applog.FieldOperation, "transactions_sync", applog.FieldError, err)
		return engine.Batch{}, err
	}

	batch := engine.Batch{
		Removed:    page.removed,
		NextCursor: page.nextCursor,
		HasMore:    page.hasMore,
	}
	for _, raw := range page.added {
		rec := raw.record()
		c.details.Set(detailKey(token, rec.ID), rec)
		batch.Added = append(batch.Added, rec)
	}
	for _, raw := range page.modified {
		rec := raw.record()
		c.details.Set(detailKey(token, rec.ID), rec)
		batch.Modified = append(batch.Modified, rec)
	}
	for _, id := range page.removed {
		c.details.Delete(detailKey(token, id))
	}

	c.logger.DebugContext(ctx, "Fetched transactions page",
		"added", len(batch.Added), "modified", len(batch.Modified), "removed", len(batch.Removed),
		"has_more", batch.HasMore, applog.FieldDuration, time.Since(start).Milliseconds())
	return batch, nil
}

// Lookup returns a transaction's details, from the cache when the record was
// seen recently and otherwise by listing the lookup window.
func (c *Client) Lookup(ctx context.Context, token, id string) (core.FeedRecord, error) {
	if rec, ok := c.details.Get(detailKey(token, id)); ok {
		return rec, nil
	}

	end := c.now()
	start := end.Add(-c.cfg.LookupWindow)
	count := int32(c.cfg.PageSize)
	for offset := int32(0); ; {
		txs, total, err := c.api.list(ctx, token, start, end, offset, count)
		if err != nil {
			return core.FeedRecord{}, classify(err)
		}
		for _, raw := range txs {
			if raw.id == id {
				rec := raw.record()
				c.details.Set(detailKey(token, id), rec)
				return rec, nil
			}
		}
		offset += int32(len(txs))
		if len(txs) == 0 || offset >= total {
			return core.FeedRecord{}, fmt.Errorf("transaction %s: %w", id, engine.ErrTransactionNotFound)
		}
	}
}

func (c *Client) CreateLinkToken(ctx context.Context, phone string) (string, error) {
	token, err := c.api.linkToken(ctx, linkRequest{
		clientName:  c.cfg.ClientName,
		userID:      phone,
		webhook:     c.cfg.WebhookURL,
		redirectURI: c.cfg.RedirectURI,
	})
	if err != nil {
		return "", classify(err)
	}
	return token, nil
}

func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (engine.Link, error) {
	if publicToken == "" {
		return engine.Link{}, fmt.Errorf("public token is required")
	}
	link, err := c.api.exchange(ctx, publicToken)
	if err != nil {
		return engine.Link{}, classify(err)
	}
	return link, nil
}

func detailKey(token, id string) string { return token + "/" + id }
