package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	applog "spendsync/internal/log"
)

// Webhook is a provider notification.
type Webhook struct {
	Type   string
	Code   string
	ItemID string
	// Error carries the provider's error code, if the notification has one.
	Error string
}

func (w Webhook) syncUpdate() bool {
	if !strings.EqualFold(w.Type, "TRANSACTIONS") {
		return false
	}
	switch strings.ToUpper(w.Code) {
	case "SYNC_UPDATES_AVAILABLE", "TRANSACTIONS_SYNC_UPDATES_AVAILABLE":
		return true
	}
	return false
}

// HandleWebhook triggers a sync for the user owning the item when new
// transactions are available. Error notifications are only logged.
func (e *Engine) HandleWebhook(ctx context.Context, w Webhook) error {
	switch {
	case strings.EqualFold(w.Code, "ERROR") || w.Error != "":
		e.logger.ErrorContext(ctx, "Provider reported an item error",
			applog.FieldItemID, w.ItemID, "webhook_type", w.Type, "webhook_code", w.Code, applog.FieldError, w.Error)
		return nil
	case !w.syncUpdate():
		e.logger.DebugContext(ctx, "Ignoring webhook", "webhook_type", w.Type, "webhook_code", w.Code)
		return nil
	}

	phone, err := e.store.FindPhoneByItemID(ctx, w.ItemID)
	if errors.Is(err, ErrNotFound) {
		e.logger.WarnContext(ctx, "Webhook for unknown item", applog.FieldItemID, w.ItemID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user by item: %w", err)
	}
	if err := e.trigger.TriggerSync(ctx, phone, "webhook"); err != nil {
		return fmt.Errorf("trigger sync: %w", err)
	}
	return nil
}
