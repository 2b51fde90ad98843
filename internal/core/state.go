package core

import "fmt"

// ConversationState is either IDLE or AWAITING_REPLY for exactly one
// transaction. The zero value is IDLE.
type ConversationState struct {
	awaiting *PendingTransaction
}

func Idle() ConversationState { return ConversationState{} }

func AwaitingReply(tx PendingTransaction) ConversationState {
	return ConversationState{awaiting: &tx}
}

func (s ConversationState) IsIdle() bool { return s.awaiting == nil }

// Awaiting returns the transaction the user is being asked about.
func (s ConversationState) Awaiting() (PendingTransaction, bool) {
	if s.awaiting == nil {
		return PendingTransaction{}, false
	}
	return *s.awaiting, true
}

func (s ConversationState) String() string {
	if s.awaiting == nil {
		return "IDLE"
	}
	return fmt.Sprintf("AWAITING_REPLY(%s)", s.awaiting.ID)
}
