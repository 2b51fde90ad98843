package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spendsync/internal/core"
	applog "spendsync/internal/log"
)

// outcome is what handling one inbound message produced.
type outcome struct {
	reply  string
	dirty  bool
	closed *core.LedgerSnapshot
}

// HandleMessage processes one inbound text from phone and returns the reply.
// Unknown senders get an account on first contact.
func (e *Engine) HandleMessage(ctx context.Context, phone, body string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", errors.New("sender address is required")
	}

	unlock := e.locks.Lock(phone)
	defer unlock()

	created := false
	acct, err := e.store.LoadAccount(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		acct = core.NewAccount(phone, e.now())
		created = true
		e.logger.InfoContext(ctx, "New user on first contact", applog.FieldPhone, phone)
	} else if err != nil {
		return "", fmt.Errorf("load account: %w", err)
	}

	var out outcome
	if tx, ok := acct.State.Awaiting(); ok {
		out = e.handleReply(ctx, acct, tx, body)
	} else {
		out = e.dispatch(ctx, acct, body)
	}

	if created || out.dirty {
		acct.UpdatedAt = e.now()
		if err := e.store.SaveAccount(ctx, acct); err != nil {
			return "", fmt.Errorf("save account: %w", err)
		}
	}
	if out.closed != nil {
		e.archive(ctx, phone, *out.closed)
	}
	return out.reply, nil
}

// handleReply drives AWAITING_REPLY(tx): a confirmation books the amount and
// arms the next queued transaction, anything else leaves the state alone.
func (e *Engine) handleReply(ctx context.Context, acct *core.Account, tx core.PendingTransaction, body string) outcome {
	r := core.ParseReply(body)
	switch r.Kind {
	case core.ReplyBudgetRequest:
		return outcome{reply: msgFinishReconciling}
	case core.ReplyInvalid:
		return outcome{reply: msgInvalidReply}
	}

	confirmed := tx
	if r.Kind == core.ReplyAmount {
		confirmed.Amount = r.Amount
		if r.Category != "" {
			confirmed.Category = r.Category
		}
	}
	closed, booked := e.resolve(ctx, acct, confirmed)

	reply := confirmationText(confirmed, booked)
	next, err := e.armNext(ctx, acct)
	if err != nil {
		e.logger.WarnContext(ctx, "Could not arm next transaction", applog.FieldPhone, acct.Phone, applog.FieldError, err)
	}
	switch {
	case next != nil:
		reply += "\n\n" + promptText(*next)
	case err != nil:
		reply += " " + msgMorePending
	default:
		reply += " " + msgAllCaughtUp
	}
	return outcome{reply: reply, dirty: true, closed: closed}
}

// resolve books a confirmed transaction and returns the user to IDLE. A
// transaction from a later month rolls the ledger over first; one from an
// already closed month is recorded but not booked.
func (e *Engine) resolve(ctx context.Context, acct *core.Account, tx core.PendingTransaction) (*core.LedgerSnapshot, bool) {
	month := tx.Month()
	var closed *core.LedgerSnapshot
	if snap, rolled := acct.Ledger.RollOverIfNeeded(month); rolled {
		closed = &snap
		pruned := acct.PruneResolved(acct.Ledger.Month)
		e.logger.InfoContext(ctx, "Ledger rolled over",
			applog.FieldPhone, acct.Phone, "from", snap.Month.String(), "to", month.String(), "pruned_ids", pruned)
	}

	booked := !month.Before(acct.Ledger.Month)
	if booked {
		if err := acct.Ledger.AddSpend(tx.Category, tx.Amount); err != nil {
			// Amounts are validated non-negative by the parser and the feed.
			e.logger.ErrorContext(ctx, "Rejected spend", applog.FieldPhone, acct.Phone, applog.FieldTxID, tx.ID, applog.FieldError, err)
			booked = false
		}
	} else {
		e.logger.InfoContext(ctx, "Confirmed transaction from closed month",
			applog.FieldPhone, acct.Phone, applog.FieldTxID, tx.ID, "month", month.String())
	}

	acct.MarkResolved(tx.ID, month)
	acct.State = core.Idle()
	e.logger.InfoContext(ctx, "Transaction reconciled",
		applog.FieldPhone, acct.Phone,
		applog.FieldTxID, tx.ID,
		applog.FieldCategory, tx.Category.String(),
		applog.FieldAmount, tx.Amount.StringFixed(2),
		"booked", booked)
	return closed, booked
}

func (e *Engine) archive(ctx context.Context, phone string, snap core.LedgerSnapshot) {
	if e.archiver == nil {
		return
	}
	if err := e.archiver.ArchiveMonth(ctx, phone, snap); err != nil {
		e.logger.WarnContext(ctx, "Failed to archive closed month",
			applog.FieldPhone, phone, "month", snap.Month.String(), applog.FieldError, err)
	}
}
