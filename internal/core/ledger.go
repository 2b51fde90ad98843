package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var ErrNegativeAmount = errors.New("amount must not be negative")

// LedgerEntry holds one category's monthly limit and confirmed spend. A zero
// limit means no budget is set.
type LedgerEntry struct {
	Limit decimal.Decimal
	Spent decimal.Decimal
}

// Ledger is a user's budget for the month recorded in Month.
type Ledger struct {
	Month   Month
	entries map[Category]LedgerEntry
}

// LedgerSnapshot is the state of a ledger for one month, as archived when
// the month closes.
type LedgerSnapshot struct {
	Month   Month
	Entries map[Category]LedgerEntry
}

func NewLedger(month Month) *Ledger {
	return &Ledger{Month: month, entries: make(map[Category]LedgerEntry)}
}

// Get returns a copy of every entry, keyed by category.
func (l *Ledger) Get() map[Category]LedgerEntry {
	out := make(map[Category]LedgerEntry, len(l.entries))
	for c, e := range l.entries {
		out[c] = e
	}
	return out
}

func (l *Ledger) Entry(c Category) LedgerEntry {
	return l.entries[c]
}

// SetLimits replaces the limits named in limits and leaves other categories
// alone. Limits apply to members of the closed set only.
func (l *Ledger) SetLimits(limits map[Category]decimal.Decimal) error {
	for c, v := range limits {
		if !c.IsMember() {
			return fmt.Errorf("set limit for %q: unknown category", c)
		}
		if v.IsNegative() {
			return fmt.Errorf("set limit for %s: %w", c, ErrNegativeAmount)
		}
	}
	for c, v := range limits {
		e := l.entries[c]
		e.Limit = v.Round(2)
		l.entries[c] = e
	}
	return nil
}

// AddSpend adds a confirmed amount to a category's spend.
func (l *Ledger) AddSpend(c Category, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if c == "" {
		c = DefaultCategory
	}
	e := l.entries[c]
	e.Spent = e.Spent.Add(amount)
	l.entries[c] = e
	return nil
}

// RollOverIfNeeded moves the ledger to observed when observed is later than
// the recorded month: every spend is cleared and the closed month is returned
// as a snapshot. A ledger with no month simply adopts observed.
func (l *Ledger) RollOverIfNeeded(observed Month) (LedgerSnapshot, bool) {
	if l.Month.IsZero() {
		l.Month = observed
		return LedgerSnapshot{}, false
	}
	if !observed.After(l.Month) {
		return LedgerSnapshot{}, false
	}
	closed := LedgerSnapshot{Month: l.Month, Entries: l.Get()}
	for c, e := range l.entries {
		if e.Limit.IsZero() && !c.IsMember() {
			delete(l.entries, c)
			continue
		}
		e.Spent = decimal.Zero
		l.entries[c] = e
	}
	l.Month = observed
	return closed, true
}

// Categories returns every category with a nonzero limit or spend: members in
// display order, then free-form labels alphabetically.
func (l *Ledger) Categories() []Category {
	var out []Category
	for _, c := range Categories {
		if e, ok := l.entries[c]; ok && (!e.Limit.IsZero() || !e.Spent.IsZero()) {
			out = append(out, c)
		}
	}
	var labels []Category
	for c, e := range l.entries {
		if !c.IsMember() && (!e.Limit.IsZero() || !e.Spent.IsZero()) {
			labels = append(labels, c)
		}
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return append(out, labels...)
}

// Totals sums spend over all categories and limits over budgeted ones.
func (l *Ledger) Totals() (spent, limit decimal.Decimal) {
	for _, e := range l.entries {
		spent = spent.Add(e.Spent)
		limit = limit.Add(e.Limit)
	}
	return spent, limit
}

// Restore sets an entry verbatim; stores use it when loading a ledger.
func (l *Ledger) Restore(c Category, e LedgerEntry) {
	l.entries[c] = e
}
