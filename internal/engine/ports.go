package engine

import (
	"context"
	"errors"

	"spendsync/internal/core"
)

var (
	// ErrNotFound is returned by stores for unknown users or item ids.
	ErrNotFound = errors.New("not found")

	// ErrCredentialInvalid marks a feed failure caused by a revoked or expired
	// provider credential.
	ErrCredentialInvalid = errors.New("provider credential invalid")
	// ErrCursorInvalid marks a feed failure that requires a full resync.
	ErrCursorInvalid = errors.New("sync cursor invalid")
	// ErrTransactionNotFound is returned by Lookup when the provider no
	// longer knows the transaction.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Store persists accounts. SaveAccount writes the whole account atomically.
type Store interface {
	LoadAccount(ctx context.Context, phone string) (*core.Account, error)
	SaveAccount(ctx context.Context, acct *core.Account) error
	FindPhoneByItemID(ctx context.Context, itemID string) (string, error)
	ListPhones(ctx context.Context) ([]string, error)
	DeleteAccount(ctx context.Context, phone string) error
}

// Batch is one page of the transaction feed.
type Batch struct {
	Added      []core.FeedRecord
	Modified   []core.FeedRecord
	Removed    []string
	NextCursor string
	HasMore    bool
}

// Feed is the provider's cursor-based transaction feed.
type Feed interface {
	FetchBatch(ctx context.Context, accessToken, cursor string) (Batch, error)
	Lookup(ctx context.Context, accessToken, txID string) (core.FeedRecord, error)
}

// Link is the result of exchanging a public token.
type Link struct {
	AccessToken string
	ItemID      string
}

// Linker performs the provider's bank-link exchange.
type Linker interface {
	CreateLinkToken(ctx context.Context, phone string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (Link, error)
}

// Messenger sends a text to a user. Delivery is at-most-once.
type Messenger interface {
	Send(ctx context.Context, to, body string) error
}

// Archiver receives a user's ledger when a month closes.
type Archiver interface {
	ArchiveMonth(ctx context.Context, phone string, snapshot core.LedgerSnapshot) error
}

// SyncTrigger schedules a sync for one user without waiting for it.
type SyncTrigger interface {
	TriggerSync(ctx context.Context, phone, reason string) error
}
