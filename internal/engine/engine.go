// Package engine is the synchronization and reconciliation engine. It pulls
// new transactions from the feed, queues them per user, walks the user
// through them one at a time over the text channel and books confirmed
// amounts into the monthly ledger.
//
// Every operation that touches a user's account runs under that user's lock;
// operations for different users run concurrently.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	applog "spendsync/internal/log"
)

var (
	ErrUnknownUser     = errors.New("unknown user")
	ErrSyncInProgress  = errors.New("sync pass already running")
	ErrInvalidLimit    = errors.New("invalid budget limit")
	ErrLinkUnavailable = errors.New("bank linking not configured")
)

// Config tunes sync behaviour.
type Config struct {
	// MaxPages caps the feed pages fetched for one user in one pass. The
	// cursor reached so far is kept, so the next pass continues from there.
	MaxPages int
	// Concurrency bounds how many users SyncAll syncs at once.
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		MaxPages:    50,
		Concurrency: 4,
	}
}

type Engine struct {
	store     Store
	feed      Feed
	messenger Messenger
	linker    Linker
	archiver  Archiver
	trigger   SyncTrigger

	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	locks *userLocks
	// allMu is held for the duration of a SyncAll pass.
	allMu sync.Mutex
	bg    sync.WaitGroup
}

type Option func(*Engine)

func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.MaxPages > 0 {
			e.cfg.MaxPages = cfg.MaxPages
		}
		if cfg.Concurrency > 0 {
			e.cfg.Concurrency = cfg.Concurrency
		}
	}
}

func WithLinker(l Linker) Option { return func(e *Engine) { e.linker = l } }

func WithArchiver(a Archiver) Option { return func(e *Engine) { e.archiver = a } }

// WithTrigger replaces the default in-process trigger used for webhooks and
// new bank links.
func WithTrigger(t SyncTrigger) Option { return func(e *Engine) { e.trigger = t } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func New(store Store, feed Feed, messenger Messenger, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		feed:      feed,
		messenger: messenger,
		cfg:       DefaultConfig(),
		logger:    applog.WithComponent(slog.Default(), applog.ComponentEngine),
		now:       time.Now,
		locks:     newUserLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.trigger == nil {
		e.trigger = inProcessTrigger{e}
	}
	return e
}

// Wait blocks until syncs started by the in-process trigger have finished.
func (e *Engine) Wait() {
	e.bg.Wait()
}

// inProcessTrigger runs SyncOne on a goroutine detached from the caller's
// cancellation.
type inProcessTrigger struct{ e *Engine }

func (t inProcessTrigger) TriggerSync(ctx context.Context, phone, reason string) error {
	ctx = context.WithoutCancel(ctx)
	t.e.bg.Add(1)
	go func() {
		defer t.e.bg.Done()
		if _, err := t.e.SyncOne(ctx, phone); err != nil {
			t.e.logger.WarnContext(ctx, "Triggered sync failed",
				applog.FieldPhone, phone, applog.FieldReason, reason, applog.FieldError, err)
		}
	}()
	return nil
}

func (e *Engine) send(ctx context.Context, phone, body string) {
	if e.messenger == nil || body == "" {
		return
	}
	if err := e.messenger.Send(ctx, phone, body); err != nil {
		e.logger.WarnContext(ctx, "Failed to send message", applog.FieldPhone, phone, applog.FieldError, err)
	}
}
