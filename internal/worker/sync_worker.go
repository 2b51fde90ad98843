package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendsync/internal/amqp"
	"spendsync/internal/engine"
	applog "spendsync/internal/log"
)

// UserSyncer is the part of the engine the worker drives.
type UserSyncer interface {
	SyncOne(ctx context.Context, phone string) (engine.SyncResult, error)
	Recover(ctx context.Context) (engine.RecoveryReport, error)
}

// RequestSource delivers sync requests until ctx ends.
type RequestSource interface {
	ConsumeSyncRequests(ctx context.Context, handler amqp.SyncRequestHandler) error
}

// SyncWorker turns queued sync requests into engine syncs.
type SyncWorker struct {
	engine UserSyncer
	source RequestSource
	logger *slog.Logger
}

func NewSyncWorker(engine UserSyncer, source RequestSource) *SyncWorker {
	return &SyncWorker{
		engine: engine,
		source: source,
		logger: applog.WithComponent(slog.Default(), applog.ComponentWorker),
	}
}

// Run consumes requests until ctx ends. StartupRecovery must have finished
// before Run or the scheduler's first pass, or a prompt armed by that pass
// is sent twice.
func (w *SyncWorker) Run(ctx context.Context) error {
	if w.source == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return w.source.ConsumeSyncRequests(ctx, w.HandleSyncRequest)
}

// StartupRecovery re-sends outstanding prompts after a restart.
func (w *SyncWorker) StartupRecovery(ctx context.Context) error {
	report, err := w.engine.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover conversations: %w", err)
	}
	if report.Resent+report.Armed > 0 {
		w.logger.InfoContext(ctx, "Restored pending conversations",
			"resent", report.Resent, "armed", report.Armed)
	}
	return nil
}

// HandleSyncRequest processes a single sync request message from AMQP.
// Requests that can never succeed are acknowledged; other failures are
// returned so the message is redelivered.
func (w *SyncWorker) HandleSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error {
	w.logger.InfoContext(ctx, "Processing sync request",
		applog.FieldMessageID, msg.ID.String(),
		applog.FieldPhone, msg.Phone,
		applog.FieldReason, msg.Reason)

	res, err := w.engine.SyncOne(ctx, msg.Phone)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrUnknownUser),
		errors.Is(err, engine.ErrCredentialInvalid):
		w.logger.WarnContext(ctx, "Dropping sync request",
			applog.FieldPhone, msg.Phone, applog.FieldError, err)
		return nil
	default:
		return fmt.Errorf("sync %s: %w", msg.Phone, err)
	}

	w.logger.InfoContext(ctx, "Sync request completed",
		applog.FieldPhone, msg.Phone,
		"enqueued", res.Enqueued,
		"pages", res.Pages,
		"skipped", res.Skipped)
	return nil
}
