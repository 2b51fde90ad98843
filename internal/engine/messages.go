package engine

import (
	"fmt"
	"strings"

	"spendsync/internal/core"
)

const (
	msgFinishReconciling = "Finish reconciling before you can see your budget status!"
	msgInvalidReply      = "Please respond with 'correct' or a valid amount"
	msgUnknownCommand    = "Text 'balance' to see your budget status, or 'help' for all commands."
	msgHelp              = "Commands:\n" +
		"• balance - budget status for this month\n" +
		"• pending - transactions waiting for review\n" +
		"• sync - check your bank for new transactions\n" +
		"• help - this list"
	msgNoSpending    = "💰 No spending this month yet!"
	msgNothingQueued = "✅ No transactions pending verification!"
	msgAllCaughtUp   = "You're all caught up."
	msgMorePending   = "More transactions are waiting. The next one follows after your next sync."
	msgNotLinked     = "No bank account is linked yet. Connect one in the app first."
	msgSyncFailed    = "⚠️ Couldn't reach your bank right now. Try again in a bit."
	msgSyncNoNews    = "🔄 Synced. No new transactions."
	msgWelcome       = "🎉 Bank account connected! Text 'balance' to see your budget status."

	pendingPreviewSize = 5
)

func promptText(tx core.PendingTransaction) string {
	return fmt.Sprintf("🧾 New transaction\nMerchant: %s\nDate: %s\nCategory: %s\nAmount: %s\n\n"+
		"Reply 'correct', or the amount you actually owe (e.g. 12.50). "+
		"Add ',category' to file it elsewhere.",
		tx.Merchant,
		tx.Date.Format("Jan 2, 2006"),
		tx.Category.DisplayName(),
		core.FormatMoney(tx.Amount))
}

func newTransactionsNotice(n int) string {
	return fmt.Sprintf("📥 %d new transactions to review. I'll send them one at a time.", n)
}

func syncReport(res SyncResult) string {
	if res.Enqueued == 0 && res.Prompt == nil {
		return msgSyncNoNews
	}
	var b strings.Builder
	if res.Enqueued == 1 {
		b.WriteString("🔄 Synced. 1 new transaction to review.")
	} else {
		fmt.Fprintf(&b, "🔄 Synced. %d new transactions to review.", res.Enqueued)
	}
	if res.Prompt != nil {
		b.WriteString("\n\n")
		b.WriteString(promptText(*res.Prompt))
	}
	return b.String()
}

func confirmationText(tx core.PendingTransaction, booked bool) string {
	if !booked {
		return fmt.Sprintf("✅ Noted. That transaction falls in %s, which is already closed.", tx.Month().Label())
	}
	return fmt.Sprintf("✅ Logged %s to %s.", core.FormatMoney(tx.Amount), tx.Category.DisplayName())
}
