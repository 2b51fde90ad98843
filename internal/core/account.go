package core

import (
	"sort"
	"time"
)

// Account is everything the engine keeps per user. The cursor, queue,
// conversation state and ledger form one consistency unit and are always
// persisted together.
type Account struct {
	Phone       string
	AccessToken string
	ItemID      string
	Cursor      string
	State       ConversationState
	Queue       Queue
	Ledger      *Ledger
	// Resolved maps confirmed or skipped transaction ids to the month they
	// belong to, so that redelivered records are not queued again.
	Resolved  map[string]Month
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewAccount(phone string, now time.Time) *Account {
	return &Account{
		Phone:     phone,
		Ledger:    NewLedger(Month{}),
		Resolved:  make(map[string]Month),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Linked reports whether the account holds a provider credential.
func (a *Account) Linked() bool { return a.AccessToken != "" }

// Seen reports whether id is queued, being asked about or already resolved.
func (a *Account) Seen(id string) bool {
	if a.Queue.Contains(id) {
		return true
	}
	if tx, ok := a.State.Awaiting(); ok && tx.ID == id {
		return true
	}
	_, ok := a.Resolved[id]
	return ok
}

func (a *Account) MarkResolved(id string, m Month) {
	if a.Resolved == nil {
		a.Resolved = make(map[string]Month)
	}
	a.Resolved[id] = m
}

// PruneResolved forgets resolved ids from months before floor. Records that
// old are never queued again, so their ids are no longer needed.
func (a *Account) PruneResolved(floor Month) int {
	n := 0
	for id, m := range a.Resolved {
		if m.Before(floor) {
			delete(a.Resolved, id)
			n++
		}
	}
	return n
}

// ResolvedIDs returns the resolved ids in sorted order.
func (a *Account) ResolvedIDs() []string {
	ids := make([]string, 0, len(a.Resolved))
	for id := range a.Resolved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Unlink drops the provider link along with everything derived from it.
// Limits and this month's spend stay.
func (a *Account) Unlink() {
	a.AccessToken = ""
	a.ItemID = ""
	a.ResetFeed()
}

// ResetFeed forces a full resync and drops queued and in-flight items so
// stale transactions are not replayed against a fresh link.
func (a *Account) ResetFeed() {
	a.Cursor = ""
	a.Queue.Clear()
	a.State = Idle()
}

// Clone returns a deep copy of a.
func (a *Account) Clone() *Account {
	c := *a
	c.Queue = Queue{}
	for _, it := range a.Queue.Items() {
		if it.Tx != nil {
			tx := *it.Tx
			it.Tx = &tx
		}
		c.Queue.Enqueue(it)
	}
	c.Ledger = NewLedger(a.Ledger.Month)
	for cat, e := range a.Ledger.Get() {
		c.Ledger.Restore(cat, e)
	}
	c.Resolved = make(map[string]Month, len(a.Resolved))
	for id, m := range a.Resolved {
		c.Resolved[id] = m
	}
	return &c
}
