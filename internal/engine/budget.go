package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"spendsync/internal/core"
	applog "spendsync/internal/log"
)

// BudgetView is a user's ledger as exposed to the budget surface.
type BudgetView struct {
	Phone   string
	Month   core.Month
	Entries map[core.Category]core.LedgerEntry
}

// Budget returns the user's current limits and spend.
func (e *Engine) Budget(ctx context.Context, phone string) (BudgetView, error) {
	unlock := e.locks.Lock(phone)
	defer unlock()

	acct, err := e.loadExisting(ctx, phone)
	if err != nil {
		return BudgetView{}, err
	}
	return viewOf(acct), nil
}

// SetLimits updates the named limits. Categories outside the closed set and
// negative values are rejected with ErrInvalidLimit and nothing is changed.
func (e *Engine) SetLimits(ctx context.Context, phone string, limits map[core.Category]decimal.Decimal) (BudgetView, error) {
	unlock := e.locks.Lock(phone)
	defer unlock()

	acct, err := e.loadExisting(ctx, phone)
	if err != nil {
		return BudgetView{}, err
	}
	if err := acct.Ledger.SetLimits(limits); err != nil {
		return BudgetView{}, fmt.Errorf("%w: %v", ErrInvalidLimit, err)
	}
	acct.UpdatedAt = e.now()
	if err := e.store.SaveAccount(ctx, acct); err != nil {
		return BudgetView{}, fmt.Errorf("save account: %w", err)
	}
	e.logger.InfoContext(ctx, "Budget limits updated", applog.FieldPhone, phone, "categories", len(limits))
	return viewOf(acct), nil
}

func (e *Engine) loadExisting(ctx context.Context, phone string) (*core.Account, error) {
	acct, err := e.store.LoadAccount(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return acct, nil
}

func viewOf(acct *core.Account) BudgetView {
	return BudgetView{
		Phone:   acct.Phone,
		Month:   acct.Ledger.Month,
		Entries: acct.Ledger.Get(),
	}
}
