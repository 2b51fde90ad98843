// Package sheets archives closed budget months to a spreadsheet.
package sheets

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"spendsync/internal/core"
)

// ArchivedRow is one category of a closed month.
type ArchivedRow struct {
	Phone      string
	Month      core.Month
	Category   core.Category
	Limit      decimal.Decimal
	Spent      decimal.Decimal
	ArchivedAt time.Time
}

// Ports for outbound adapters.
type (
	// Archiver stores a closed month's ledger.
	Archiver interface {
		ArchiveMonth(ctx context.Context, phone string, snap core.LedgerSnapshot) error
	}

	// ArchiveReader lists what was archived for a user, oldest month first.
	ArchiveReader interface {
		ListArchive(ctx context.Context, phone string) ([]ArchivedRow, error)
	}
)

// Rows flattens a snapshot, members in display order followed by free-form
// labels alphabetically.
func Rows(phone string, snap core.LedgerSnapshot, at time.Time) []ArchivedRow {
	rows := make([]ArchivedRow, 0, len(snap.Entries))
	for c, e := range snap.Entries {
		rows = append(rows, ArchivedRow{
			Phone:      phone,
			Month:      snap.Month,
			Category:   c,
			Limit:      e.Limit,
			Spent:      e.Spent,
			ArchivedAt: at,
		})
	}
	SortRows(rows)
	return rows
}

// SortRows orders rows by month and then by category display order.
func SortRows(rows []ArchivedRow) {
	rank := make(map[core.Category]int, len(core.Categories))
	for i, c := range core.Categories {
		rank[c] = i
	}
	order := func(c core.Category) int {
		if r, ok := rank[c]; ok {
			return r
		}
		return len(core.Categories)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Month != b.Month {
			return a.Month.Before(b.Month)
		}
		if oa, ob := order(a.Category), order(b.Category); oa != ob {
			return oa < ob
		}
		return a.Category < b.Category
	})
}
