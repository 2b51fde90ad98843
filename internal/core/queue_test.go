package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(q Queue) []string {
	var out []string
	for _, it := range q.Items() {
		out = append(out, it.ID)
	}
	return out
}

func TestQueueFIFOAndDedupe(t *testing.T) {
	var q Queue
	assert.True(t, q.Enqueue(QueueItem{ID: "a"}))
	assert.True(t, q.Enqueue(QueueItem{ID: "b"}))
	assert.False(t, q.Enqueue(QueueItem{ID: "a"}))
	assert.False(t, q.Enqueue(QueueItem{}))
	assert.Equal(t, []string{"a", "b"}, ids(q))

	it, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, "a", it.ID)

	q.PushFront(it)
	assert.Equal(t, []string{"a", "b"}, ids(q))

	assert.True(t, q.Remove("a"))
	assert.False(t, q.Remove("a"))
	assert.Equal(t, []string{"b"}, ids(q))

	q.Clear()
	_, ok = q.Peek()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQueueRefresh(t *testing.T) {
	q := NewQueue(QueueItem{ID: "a"})
	assert.True(t, q.Refresh(PendingTransaction{ID: "a", Merchant: "Cafe"}))
	assert.False(t, q.Refresh(PendingTransaction{ID: "z"}))
	head, _ := q.Peek()
	if assert.NotNil(t, head.Tx) {
		assert.Equal(t, "Cafe", head.Tx.Merchant)
	}
}

func TestQueueItemsIsACopy(t *testing.T) {
	q := NewQueue(QueueItem{ID: "a"}, QueueItem{ID: "b"})
	items := q.Items()
	items[0].ID = "changed"
	assert.Equal(t, []string{"a", "b"}, ids(q))
}
