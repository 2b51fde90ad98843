package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"

	"spendsync/internal/core"
	"spendsync/internal/engine"
)

const dateLayout = "2006-01-02"

// rawTransaction is the part of a Plaid transaction the engine needs.
type rawTransaction struct {
	id       string
	amount   float64
	date     string
	merchant string
	name     string
	category string
	pending  bool
}

// record converts to a feed record. Plaid reports outflows as positive
// amounts; the sign is kept and normalized later. The merchant name falls
// back to the transaction name.
func (r rawTransaction) record() core.FeedRecord {
	merchant := strings.TrimSpace(r.merchant)
	if merchant == "" {
		merchant = strings.TrimSpace(r.name)
	}
	// An unparseable date stays zero and the record fails validation.
	date, _ := time.Parse(dateLayout, r.date)
	return core.FeedRecord{
		ID:               r.id,
		RawAmount:        decimal.NewFromFloat(r.amount).Round(2),
		ProviderCategory: r.category,
		Date:             date,
		Merchant:         merchant,
		Pending:          r.pending,
	}
}

var credentialCodes = map[string]bool{
	"ITEM_LOGIN_REQUIRED":     true,
	"INVALID_ACCESS_TOKEN":    true,
	"ITEM_NOT_FOUND":          true,
	"ACCESS_NOT_GRANTED":      true,
	"USER_PERMISSION_REVOKED": true,
}

// classify maps a Plaid error onto the engine's error taxonomy. Anything not
// recognised as a credential or cursor problem is transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	pe, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return fmt.Errorf("plaid request: %w", err)
	}
	return classifyCode(pe.GetErrorCode(), pe.GetErrorMessage(), err)
}

func classifyCode(code, message string, err error) error {
	switch {
	case credentialCodes[code]:
		return fmt.Errorf("plaid %s: %w", code, engine.ErrCredentialInvalid)
	case code == "INVALID_FIELD" && strings.Contains(strings.ToLower(message), "cursor"):
		return fmt.Errorf("plaid %s: %s: %w", code, message, engine.ErrCursorInvalid)
	case code != "":
		return fmt.Errorf("plaid %s: %s: %w", code, message, err)
	default:
		return fmt.Errorf("plaid request: %w", err)
	}
}
