package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"spendsync/internal/core"
	applog "spendsync/internal/log"
)

// SyncResult describes one user's sync pass.
type SyncResult struct {
	Phone     string
	Enqueued  int
	Removed   int
	Pages     int
	Truncated bool
	// Skipped names why nothing was fetched: "awaiting_reply" or "not_linked".
	Skipped string
	// Prompt is the transaction armed by this pass, if any.
	Prompt *core.PendingTransaction
}

// SyncAllReport summarises a SyncAll pass.
type SyncAllReport struct {
	Users    int
	Failed   int
	Enqueued int
	Duration time.Duration
}

type feedPass struct {
	added     []core.FeedRecord
	modified  []core.FeedRecord
	removed   []string
	cursor    string
	pages     int
	truncated bool
}

// SyncOne pulls new transactions for one user, queues them and, when the
// user is idle, prompts for the first one.
func (e *Engine) SyncOne(ctx context.Context, phone string) (SyncResult, error) {
	unlock := e.locks.Lock(phone)
	defer unlock()

	acct, err := e.store.LoadAccount(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return SyncResult{Phone: phone}, fmt.Errorf("sync %s: %w", phone, ErrUnknownUser)
	}
	if err != nil {
		return SyncResult{Phone: phone}, fmt.Errorf("load account: %w", err)
	}

	res, err := e.syncAccount(ctx, acct)
	if err != nil {
		return res, err
	}
	if res.Prompt != nil {
		if res.Enqueued > 1 {
			e.send(ctx, phone, newTransactionsNotice(res.Enqueued))
		}
		e.send(ctx, phone, promptText(*res.Prompt))
	}
	return res, nil
}

// SyncAll runs SyncOne for every user, a bounded number at a time. A failing
// user does not stop the others. Overlapping calls return ErrSyncInProgress.
func (e *Engine) SyncAll(ctx context.Context) (SyncAllReport, error) {
	if !e.allMu.TryLock() {
		return SyncAllReport{}, ErrSyncInProgress
	}
	defer e.allMu.Unlock()

	start := e.now()
	phones, err := e.store.ListPhones(ctx)
	if err != nil {
		return SyncAllReport{}, fmt.Errorf("list users: %w", err)
	}

	var (
		mu     sync.Mutex
		report = SyncAllReport{Users: len(phones)}
	)
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for _, phone := range phones {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := e.SyncOne(ctx, phone)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				e.logger.WarnContext(ctx, "User sync failed", applog.FieldPhone, phone, applog.FieldError, err)
				return nil
			}
			report.Enqueued += res.Enqueued
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = e.now().Sub(start)
	e.logger.InfoContext(ctx, "Sync pass completed",
		"users", report.Users, "failed", report.Failed, "enqueued", report.Enqueued,
		applog.FieldDuration, report.Duration.Milliseconds())
	return report, ctx.Err()
}

// syncAccount runs one pass for acct and persists the outcome. The caller
// holds the user's lock.
func (e *Engine) syncAccount(ctx context.Context, acct *core.Account) (SyncResult, error) {
	res := SyncResult{Phone: acct.Phone}
	if !acct.State.IsIdle() {
		res.Skipped = "awaiting_reply"
		return res, nil
	}
	if !acct.Linked() {
		res.Skipped = "not_linked"
		return res, nil
	}

	pass, err := e.drain(ctx, acct)
	res.Pages = pass.pages
	if err != nil {
		return res, e.handleFeedError(ctx, acct, err)
	}
	res.Truncated = pass.truncated

	e.apply(ctx, acct, pass, &res)
	acct.Cursor = pass.cursor

	prompt, err := e.armNext(ctx, acct)
	if err != nil {
		e.logger.WarnContext(ctx, "Could not arm next transaction", applog.FieldPhone, acct.Phone, applog.FieldError, err)
	}
	res.Prompt = prompt

	acct.UpdatedAt = e.now()
	if err := e.store.SaveAccount(ctx, acct); err != nil {
		return SyncResult{Phone: acct.Phone}, fmt.Errorf("save account: %w", err)
	}

	e.logger.InfoContext(ctx, "User synced",
		applog.FieldPhone, acct.Phone,
		"enqueued", res.Enqueued,
		"removed", res.Removed,
		"pages", res.Pages,
		"truncated", res.Truncated,
		"queue_length", acct.Queue.Len())
	return res, nil
}

// drain fetches pages until the feed reports no more data or the page cap
// is reached.
func (e *Engine) drain(ctx context.Context, acct *core.Account) (feedPass, error) {
	pass := feedPass{cursor: acct.Cursor}
	for {
		if pass.pages >= e.cfg.MaxPages {
			pass.truncated = true
			e.logger.WarnContext(ctx, "Feed page cap reached, continuing next pass",
				applog.FieldPhone, acct.Phone, "max_pages", e.cfg.MaxPages)
			return pass, nil
		}
		batch, err := e.feed.FetchBatch(ctx, acct.AccessToken, pass.cursor)
		if err != nil {
			return pass, err
		}
		pass.pages++
		pass.added = append(pass.added, batch.Added...)
		pass.modified = append(pass.modified, batch.Modified...)
		pass.removed = append(pass.removed, batch.Removed...)
		pass.cursor = batch.NextCursor
		if !batch.HasMore {
			return pass, nil
		}
	}
}

func (e *Engine) handleFeedError(ctx context.Context, acct *core.Account, err error) error {
	var reset bool
	switch {
	case errors.Is(err, ErrCredentialInvalid):
		e.logger.WarnContext(ctx, "Provider credential invalid, clearing queue and cursor",
			applog.FieldPhone, acct.Phone, applog.FieldErrorType, applog.ErrorTypeAuth, applog.FieldError, err)
		acct.ResetFeed()
		reset = true
	case errors.Is(err, ErrCursorInvalid):
		e.logger.WarnContext(ctx, "Sync cursor invalid, forcing full resync",
			applog.FieldPhone, acct.Phone, applog.FieldError, err)
		acct.Cursor = ""
		reset = true
	default:
		e.logger.WarnContext(ctx, "Transient feed error, keeping cursor",
			applog.FieldPhone, acct.Phone, applog.FieldErrorType, applog.ErrorTypeNetwork, applog.FieldError, err)
	}
	if reset {
		acct.UpdatedAt = e.now()
		if saveErr := e.store.SaveAccount(ctx, acct); saveErr != nil {
			return fmt.Errorf("save account after feed error: %w", saveErr)
		}
	}
	return fmt.Errorf("fetch transactions: %w", err)
}

// apply folds a feed pass into the account: new records are queued once,
// modified ones refresh queued details and removed ones leave the queue.
func (e *Engine) apply(ctx context.Context, acct *core.Account, pass feedPass, res *SyncResult) {
	floor := acct.Ledger.Month
	if floor.IsZero() {
		floor = core.MonthOf(e.now())
	}

	for _, rec := range pass.added {
		if rec.Pending {
			continue
		}
		tx := rec.Normalize()
		if err := tx.Validate(); err != nil {
			e.logger.WarnContext(ctx, "Skipping malformed feed record",
				applog.FieldPhone, acct.Phone, applog.FieldTxID, rec.ID, applog.FieldError, err)
			continue
		}
		if tx.Month().Before(floor) || acct.Seen(tx.ID) {
			continue
		}
		if acct.Queue.Enqueue(core.QueueItem{ID: tx.ID, Tx: &tx}) {
			res.Enqueued++
		}
	}
	for _, rec := range pass.modified {
		if rec.Pending {
			continue
		}
		acct.Queue.Refresh(rec.Normalize())
	}
	for _, id := range pass.removed {
		if acct.Queue.Remove(id) {
			res.Removed++
		}
	}
}

// armNext moves the queue head into AWAITING_REPLY. Heads whose details can
// no longer be found upstream are skipped; the loop is bounded by the queue
// length.
func (e *Engine) armNext(ctx context.Context, acct *core.Account) (*core.PendingTransaction, error) {
	for acct.State.IsIdle() {
		item, ok := acct.Queue.Pop()
		if !ok {
			return nil, nil
		}
		tx := item.Tx
		if tx == nil {
			rec, err := e.feed.Lookup(ctx, acct.AccessToken, item.ID)
			if errors.Is(err, ErrTransactionNotFound) {
				e.logger.InfoContext(ctx, "Queued transaction gone upstream, skipping",
					applog.FieldPhone, acct.Phone, applog.FieldTxID, item.ID)
				acct.MarkResolved(item.ID, acct.Ledger.Month)
				continue
			}
			if err != nil {
				acct.Queue.PushFront(item)
				return nil, fmt.Errorf("look up transaction %s: %w", item.ID, err)
			}
			normalized := rec.Normalize()
			tx = &normalized
		}
		acct.State = core.AwaitingReply(*tx)
		return tx, nil
	}
	return nil, nil
}
