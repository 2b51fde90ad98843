package engine

import (
	"context"
	"fmt"

	"spendsync/internal/core"
	applog "spendsync/internal/log"
)

// RecoveryReport counts what Recover did.
type RecoveryReport struct {
	Resent int
	Armed  int
	Failed int
}

// Recover re-derives conversation state after a restart. Users waiting on a
// reply get their prompt again; idle users with queued transactions are
// armed.
func (e *Engine) Recover(ctx context.Context) (RecoveryReport, error) {
	phones, err := e.store.ListPhones(ctx)
	if err != nil {
		return RecoveryReport{}, fmt.Errorf("list users: %w", err)
	}
	var report RecoveryReport
	for _, phone := range phones {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		prompt, armed, err := e.recoverUser(ctx, phone)
		if err != nil {
			report.Failed++
			e.logger.WarnContext(ctx, "Recovery failed", applog.FieldPhone, phone, applog.FieldError, err)
			continue
		}
		if prompt == nil {
			continue
		}
		if armed {
			report.Armed++
		} else {
			report.Resent++
		}
		e.send(ctx, phone, promptText(*prompt))
	}
	e.logger.InfoContext(ctx, "Recovery completed",
		"users", len(phones), "resent", report.Resent, "armed", report.Armed, "failed", report.Failed)
	return report, nil
}

func (e *Engine) recoverUser(ctx context.Context, phone string) (*core.PendingTransaction, bool, error) {
	unlock := e.locks.Lock(phone)
	defer unlock()

	acct, err := e.loadExisting(ctx, phone)
	if err != nil {
		return nil, false, err
	}
	if tx, ok := acct.State.Awaiting(); ok {
		return &tx, false, nil
	}
	if acct.Queue.Len() == 0 {
		return nil, false, nil
	}
	tx, armErr := e.armNext(ctx, acct)
	acct.UpdatedAt = e.now()
	if err := e.store.SaveAccount(ctx, acct); err != nil {
		return nil, false, fmt.Errorf("save account: %w", err)
	}
	if armErr != nil {
		return nil, false, armErr
	}
	return tx, tx != nil, nil
}
