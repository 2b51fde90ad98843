package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SyncRequestMessage asks the worker to run one user's sync. Delivery is
// at-least-once; a repeated request is harmless because a sync pass with no
// new data changes nothing.
type SyncRequestMessage struct {
	ID        uuid.UUID `json:"id"`
	Phone     string    `json:"phone"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncRequestMessage(phone, reason string) *SyncRequestMessage {
	return &SyncRequestMessage{
		ID:        uuid.New(),
		Phone:     phone,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Phone == "" {
		return nil, errors.New("sync request without phone")
	}
	return &msg, nil
}
