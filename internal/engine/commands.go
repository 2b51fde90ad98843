package engine

import (
	"context"
	"fmt"
	"strings"

	"spendsync/internal/core"
)

// dispatch answers the fixed command vocabulary. It is only reached while the
// user is IDLE.
func (e *Engine) dispatch(ctx context.Context, acct *core.Account, body string) outcome {
	switch core.NormalizeText(body) {
	case "balance", "status":
		return outcome{reply: renderBalance(acct.Ledger)}
	case "pending":
		return outcome{reply: renderPending(acct.Queue.Items())}
	case "sync":
		return e.syncCommand(ctx, acct)
	case "help":
		return outcome{reply: msgHelp}
	default:
		return outcome{reply: msgUnknownCommand}
	}
}

func (e *Engine) syncCommand(ctx context.Context, acct *core.Account) outcome {
	res, err := e.syncAccount(ctx, acct)
	switch {
	case err != nil:
		return outcome{reply: msgSyncFailed}
	case res.Skipped == "not_linked":
		return outcome{reply: msgNotLinked}
	}
	if res.Prompt != nil && res.Enqueued == 0 {
		// Re-armed an item that was already queued.
		return outcome{reply: promptText(*res.Prompt)}
	}
	return outcome{reply: syncReport(res)}
}

func renderBalance(l *core.Ledger) string {
	cats := l.Categories()
	if len(cats) == 0 {
		return msgNoSpending
	}

	var b strings.Builder
	if l.Month.IsZero() {
		b.WriteString("📊 Budget status")
	} else {
		fmt.Fprintf(&b, "📊 Budget status for %s", l.Month.Label())
	}
	for _, c := range cats {
		entry := l.Entry(c)
		b.WriteByte('\n')
		if entry.Limit.IsZero() {
			fmt.Fprintf(&b, "⚪ %s: %s (no budget set)", c.DisplayName(), core.FormatMoney(entry.Spent))
			continue
		}
		marker := "🟢"
		if entry.Spent.GreaterThan(entry.Limit) {
			marker = "🔴"
		}
		fmt.Fprintf(&b, "%s %s: %s/%s (%s%%)", marker, c.DisplayName(),
			core.FormatMoney(entry.Spent), core.FormatMoney(entry.Limit),
			core.Percent(entry.Spent, entry.Limit).String())
	}

	spent, limit := l.Totals()
	b.WriteByte('\n')
	if limit.IsZero() {
		fmt.Fprintf(&b, "💳 Total: %s", core.FormatMoney(spent))
	} else {
		fmt.Fprintf(&b, "💳 Total: %s/%s (%s%%)", core.FormatMoney(spent), core.FormatMoney(limit),
			core.Percent(spent, limit).String())
	}
	return b.String()
}

func renderPending(items []core.QueueItem) string {
	if len(items) == 0 {
		return msgNothingQueued
	}
	var b strings.Builder
	if len(items) == 1 {
		b.WriteString("📋 1 transaction needs verification:")
	} else {
		fmt.Fprintf(&b, "📋 %d transactions need verification:", len(items))
	}
	for i, it := range items {
		if i == pendingPreviewSize {
			fmt.Fprintf(&b, "\n…and %d more", len(items)-pendingPreviewSize)
			break
		}
		if it.Tx == nil {
			fmt.Fprintf(&b, "\n• %s", it.ID)
			continue
		}
		fmt.Fprintf(&b, "\n• %s: %s (%s)", it.Tx.Merchant, core.FormatMoney(it.Tx.Amount), it.Tx.Date.Format("Jan 2"))
	}
	return b.String()
}
