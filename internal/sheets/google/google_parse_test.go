package google

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendsync/internal/core"
	ports "spendsync/internal/sheets"
)

func TestParseArchive(t *testing.T) {
	values := [][]any{
		{"Phone", "Month", "Category", "Limit", "Spent", "Archived At"},
		{"+15550100", "2026-09", "food_and_drink", "100.00", "$1,040.50", "2026-10-02T08:00:00Z"},
		{"+15559999", "2026-09", "travel", "10", "5"},
		{"+15550100", "2026-08", "shopping", "", 12.5},
		{"+15550100", "Sept", "travel", "1", "1"},
		{"+15550100"},
	}

	rows, skipped := parseArchive(values, "+15550100")
	if skipped != 2 {
		t.Fatalf("skipped = %d, want 2", skipped)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.Month != (core.Month{Year: 2026, Month: time.September}) || first.Category != core.FoodAndDrink {
		t.Errorf("unexpected first row: %+v", first)
	}
	if !first.Spent.Equal(decimal.RequireFromString("1040.50")) {
		t.Errorf("spent = %s", first.Spent)
	}
	if first.ArchivedAt.IsZero() {
		t.Errorf("archived_at not parsed")
	}

	second := rows[1]
	if !second.Limit.IsZero() || !second.Spent.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("unexpected second row: %+v", second)
	}
}

func TestToValuesRoundTrip(t *testing.T) {
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	snap := core.LedgerSnapshot{
		Month: core.Month{Year: 2026, Month: time.September},
		Entries: map[core.Category]core.LedgerEntry{
			core.Travel:       {Limit: decimal.RequireFromString("200"), Spent: decimal.RequireFromString("80.1")},
			core.FoodAndDrink: {Limit: decimal.RequireFromString("100"), Spent: decimal.RequireFromString("40")},
		},
	}
	values := toValues(ports.Rows("+15550100", snap, at))
	if got := values[0][2]; got != "food_and_drink" {
		t.Fatalf("first category = %v, want food_and_drink", got)
	}
	if got := values[1][4]; got != "80.10" {
		t.Fatalf("spent cell = %v, want 80.10", got)
	}

	rows, skipped := parseArchive(values, "+15550100")
	if skipped != 0 || len(rows) != 2 {
		t.Fatalf("rows=%d skipped=%d", len(rows), skipped)
	}
	if !rows[1].ArchivedAt.Equal(at) {
		t.Errorf("archived_at = %v", rows[1].ArchivedAt)
	}
}
