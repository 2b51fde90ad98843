package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout      = "2006-01-02"
	UnknownMerchant = "Unknown Merchant"
)

// PendingTransaction is a provider transaction waiting for the user to confirm
// what they owe. Amount is already normalized to a non-negative magnitude.
type PendingTransaction struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Category Category        `json:"category"`
	Date     time.Time       `json:"date"`
	Merchant string          `json:"merchant"`
}

// FeedRecord is one transaction as reported by the feed, before normalization.
type FeedRecord struct {
	ID               string
	RawAmount        decimal.Decimal
	ProviderCategory string
	Date             time.Time
	Merchant         string
	Pending          bool
}

// Normalize maps the record's category onto the closed set and its signed
// amount onto the owed magnitude.
func (r FeedRecord) Normalize() PendingTransaction {
	merchant := strings.TrimSpace(r.Merchant)
	if merchant == "" {
		merchant = UnknownMerchant
	}
	return PendingTransaction{
		ID:       r.ID,
		Amount:   Owed(r.RawAmount),
		Category: CategoryFromProvider(r.ProviderCategory),
		Date:     r.Date,
		Merchant: merchant,
	}
}

func (t PendingTransaction) Month() Month { return MonthOf(t.Date) }

func (t PendingTransaction) Validate() error {
	if t.ID == "" {
		return errors.New("transaction id is required")
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return errors.New("transaction date is required")
	}
	return nil
}
