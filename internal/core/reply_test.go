package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		in       string
		kind     ReplyKind
		amount   string
		category Category
	}{
		{"correct", ReplyConfirm, "", ""},
		{"  CORRECT ", ReplyConfirm, "", ""},
		{"balance", ReplyBudgetRequest, "", ""},
		{"Status", ReplyBudgetRequest, "", ""},
		{"12.50", ReplyAmount, "12.50", ""},
		{"$7", ReplyAmount, "7.00", ""},
		{"0", ReplyAmount, "0.00", ""},
		{"12.50,shopping", ReplyAmount, "12.50", "shopping"},
		{"12.50, Food & Drink", ReplyAmount, "12.50", FoodAndDrink},
		{"12.50,", ReplyAmount, "12.50", ""},
		{"banana", ReplyInvalid, "", ""},
		{"-3", ReplyInvalid, "", ""},
		{"12.50,!!", ReplyInvalid, "", ""},
		{"1,000", ReplyInvalid, "", ""},
		{"1,250.00", ReplyInvalid, "", ""},
		{"12,$3", ReplyInvalid, "", ""},
		{"", ReplyInvalid, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r := ParseReply(tt.in)
			assert.Equal(t, tt.kind, r.Kind)
			if tt.amount != "" {
				assert.Equal(t, tt.amount, r.Amount.StringFixed(2))
			}
			assert.Equal(t, tt.category, r.Category)
		})
	}
}

func TestConversationState(t *testing.T) {
	s := Idle()
	assert.True(t, s.IsIdle())
	assert.Equal(t, "IDLE", s.String())

	s = AwaitingReply(PendingTransaction{ID: "tx1"})
	assert.False(t, s.IsIdle())
	tx, ok := s.Awaiting()
	assert.True(t, ok)
	assert.Equal(t, "tx1", tx.ID)
	assert.Equal(t, "AWAITING_REPLY(tx1)", s.String())
}
