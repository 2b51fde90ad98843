package core

// QueueItem is one queued transaction id. Tx is nil when the details were
// not cached and must be looked up before prompting.
type QueueItem struct {
	ID string
	Tx *PendingTransaction
}

// Queue is a per-user FIFO of transactions awaiting reconciliation. Ids are
// unique within a queue.
type Queue struct {
	items []QueueItem
}

func NewQueue(items ...QueueItem) Queue {
	q := Queue{}
	for _, it := range items {
		q.Enqueue(it)
	}
	return q
}

// Enqueue appends it to the tail unless its id is already queued. It reports
// whether the item was added.
func (q *Queue) Enqueue(it QueueItem) bool {
	if it.ID == "" || q.Contains(it.ID) {
		return false
	}
	q.items = append(q.items, it)
	return true
}

func (q *Queue) Peek() (QueueItem, bool) {
	if len(q.items) == 0 {
		return QueueItem{}, false
	}
	return q.items[0], true
}

func (q *Queue) Pop() (QueueItem, bool) {
	it, ok := q.Peek()
	if !ok {
		return QueueItem{}, false
	}
	q.items = q.items[1:]
	return it, true
}

// PushFront puts an item popped earlier back at the head.
func (q *Queue) PushFront(it QueueItem) {
	if q.Contains(it.ID) {
		return
	}
	q.items = append([]QueueItem{it}, q.items...)
}

func (q *Queue) Contains(id string) bool {
	for _, it := range q.items {
		if it.ID == id {
			return true
		}
	}
	return false
}

// Remove drops id from the queue and reports whether it was present.
func (q *Queue) Remove(id string) bool {
	for i, it := range q.items {
		if it.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Refresh replaces the cached details of a queued transaction.
func (q *Queue) Refresh(tx PendingTransaction) bool {
	for i := range q.items {
		if q.items[i].ID == tx.ID {
			q.items[i].Tx = &tx
			return true
		}
	}
	return false
}

func (q *Queue) Clear() { q.items = nil }

func (q *Queue) Len() int { return len(q.items) }

// Items returns a copy of the queue contents, head first.
func (q *Queue) Items() []QueueItem {
	out := make([]QueueItem, len(q.items))
	copy(out, q.items)
	return out
}
