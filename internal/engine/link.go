package engine

import (
	"context"
	"errors"
	"fmt"

	"spendsync/internal/core"
	applog "spendsync/internal/log"
)

// CreateLinkToken asks the provider for a token the client uses to start
// bank linking.
func (e *Engine) CreateLinkToken(ctx context.Context, phone string) (string, error) {
	if e.linker == nil {
		return "", ErrLinkUnavailable
	}
	token, err := e.linker.CreateLinkToken(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("create link token: %w", err)
	}
	return token, nil
}

// ConnectBank exchanges a public token and stores the resulting credential.
// A new link starts from an empty cursor and queue; limits and spend stay.
func (e *Engine) ConnectBank(ctx context.Context, phone, publicToken string) error {
	if e.linker == nil {
		return ErrLinkUnavailable
	}
	link, err := e.linker.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return fmt.Errorf("exchange public token: %w", err)
	}

	if err := e.storeLink(ctx, phone, link); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "Bank account linked", applog.FieldPhone, phone, applog.FieldItemID, link.ItemID)

	e.send(ctx, phone, msgWelcome)
	if err := e.trigger.TriggerSync(ctx, phone, "bank_linked"); err != nil {
		e.logger.WarnContext(ctx, "Failed to trigger initial sync", applog.FieldPhone, phone, applog.FieldError, err)
	}
	return nil
}

func (e *Engine) storeLink(ctx context.Context, phone string, link Link) error {
	unlock := e.locks.Lock(phone)
	defer unlock()

	acct, err := e.store.LoadAccount(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		acct = core.NewAccount(phone, e.now())
	} else if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	acct.Unlink()
	acct.AccessToken = link.AccessToken
	acct.ItemID = link.ItemID
	acct.UpdatedAt = e.now()
	if err := e.store.SaveAccount(ctx, acct); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// DeleteUser removes the user together with their queue and ledger.
func (e *Engine) DeleteUser(ctx context.Context, phone string) error {
	unlock := e.locks.Lock(phone)
	defer unlock()

	err := e.store.DeleteAccount(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return ErrUnknownUser
	}
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	e.logger.InfoContext(ctx, "User deleted", applog.FieldPhone, phone)
	return nil
}
