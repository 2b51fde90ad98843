package worker

import (
	"context"
)

// Publisher enqueues a sync request.
type Publisher interface {
	PublishSyncRequest(ctx context.Context, phone, reason string) error
}

// AMQPTrigger hands triggered syncs to the worker over the broker so that
// every sync for a user runs in the daemon that holds the user locks.
type AMQPTrigger struct {
	publisher Publisher
}

func NewAMQPTrigger(p Publisher) *AMQPTrigger {
	return &AMQPTrigger{publisher: p}
}

func (t *AMQPTrigger) TriggerSync(ctx context.Context, phone, reason string) error {
	return t.publisher.PublishSyncRequest(ctx, phone, reason)
}
