package google

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendsync/internal/core"
	ports "spendsync/internal/sheets"
)

// Archive sheet columns: Phone, Month, Category, Limit, Spent, Archived At.
const archiveColumns = 6

func toValues(rows []ports.ArchivedRow) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{
			r.Phone,
			r.Month.String(),
			r.Category.String(),
			r.Limit.StringFixed(2),
			r.Spent.StringFixed(2),
			r.ArchivedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// parseArchive keeps the rows belonging to phone. A header row and rows
// that do not parse are skipped; the second result counts the latter.
func parseArchive(values [][]any, phone string) ([]ports.ArchivedRow, int) {
	var (
		out     []ports.ArchivedRow
		skipped int
	)
	for i, raw := range values {
		row := toStrings(raw)
		if i == 0 && strings.EqualFold(safeGet(row, 0), "phone") {
			continue
		}
		if safeGet(row, 0) != phone {
			continue
		}
		r, err := parseRow(row)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, skipped
}

func parseRow(row []string) (ports.ArchivedRow, error) {
	if len(row) < archiveColumns-1 {
		return ports.ArchivedRow{}, fmt.Errorf("short row: %d columns", len(row))
	}
	month, err := core.ParseMonth(row[1])
	if err != nil {
		return ports.ArchivedRow{}, err
	}
	limit, err := parseAmount(row[3])
	if err != nil {
		return ports.ArchivedRow{}, fmt.Errorf("limit: %w", err)
	}
	spent, err := parseAmount(row[4])
	if err != nil {
		return ports.ArchivedRow{}, fmt.Errorf("spent: %w", err)
	}
	r := ports.ArchivedRow{
		Phone:    row[0],
		Month:    month,
		Category: core.Category(row[2]),
		Limit:    limit,
		Spent:    spent,
	}
	if at := safeGet(row, 5); at != "" {
		if t, err := time.Parse(time.RFC3339, at); err == nil {
			r.ArchivedAt = t
		}
	}
	return r, nil
}

// parseAmount accepts what USER_ENTERED turns our values into, including a
// currency prefix and thousands separators.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
