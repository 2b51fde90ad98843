package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ReplyKind classifies an inbound message sent while a transaction awaits
// confirmation.
type ReplyKind int

const (
	ReplyInvalid ReplyKind = iota
	ReplyConfirm
	ReplyAmount
	ReplyBudgetRequest
)

// Reply is a parsed answer to a reconciliation prompt.
type Reply struct {
	Kind     ReplyKind
	Amount   decimal.Decimal
	Category Category // empty unless overridden
}

// NormalizeText trims and lower-cases inbound text.
func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseReply interprets text sent while awaiting a reply: "correct", an
// amount optionally followed by ",<category>", or a budget request.
func ParseReply(text string) Reply {
	text = NormalizeText(text)
	switch text {
	case "correct":
		return Reply{Kind: ReplyConfirm}
	case "status", "balance":
		return Reply{Kind: ReplyBudgetRequest}
	}

	amountPart, categoryPart, hasCategory := strings.Cut(text, ",")
	amount, err := ParseAmount(amountPart)
	if err != nil {
		return Reply{Kind: ReplyInvalid}
	}
	r := Reply{Kind: ReplyAmount, Amount: amount}
	if hasCategory && strings.TrimSpace(categoryPart) != "" {
		// "1,000" is a thousands separator, not a category.
		if strings.IndexFunc(categoryPart, unicode.IsLetter) < 0 {
			return Reply{Kind: ReplyInvalid}
		}
		c, err := ParseCategoryOverride(categoryPart)
		if err != nil {
			return Reply{Kind: ReplyInvalid}
		}
		r.Category = c
	}
	return r
}
