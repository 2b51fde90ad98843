package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLedgerAddSpendAccumulates(t *testing.T) {
	l := NewLedger(Month{Year: 2026, Month: time.October})
	require.NoError(t, l.AddSpend(FoodAndDrink, d("20.00")))
	require.NoError(t, l.AddSpend(FoodAndDrink, d("0.10")))
	assert.True(t, l.Entry(FoodAndDrink).Spent.Equal(d("20.10")))

	assert.ErrorIs(t, l.AddSpend(FoodAndDrink, d("-1")), ErrNegativeAmount)
	assert.True(t, l.Entry(FoodAndDrink).Spent.Equal(d("20.10")))
}

func TestLedgerSetLimits(t *testing.T) {
	l := NewLedger(Month{})
	require.NoError(t, l.SetLimits(map[Category]decimal.Decimal{FoodAndDrink: d("100")}))
	assert.True(t, l.Entry(FoodAndDrink).Limit.Equal(d("100")))

	assert.Error(t, l.SetLimits(map[Category]decimal.Decimal{"shopping": d("10")}))
	assert.Error(t, l.SetLimits(map[Category]decimal.Decimal{Travel: d("-5"), Medical: d("5")}))
	assert.True(t, l.Entry(Medical).Limit.IsZero(), "a rejected update must not apply partially")
}

func TestLedgerRollOver(t *testing.T) {
	sep := Month{Year: 2026, Month: time.September}
	oct := Month{Year: 2026, Month: time.October}

	l := NewLedger(sep)
	require.NoError(t, l.SetLimits(map[Category]decimal.Decimal{FoodAndDrink: d("100")}))
	require.NoError(t, l.AddSpend(FoodAndDrink, d("40")))
	require.NoError(t, l.AddSpend("shopping", d("12.50")))

	_, rolled := l.RollOverIfNeeded(sep)
	assert.False(t, rolled)

	closed, rolled := l.RollOverIfNeeded(oct)
	require.True(t, rolled)
	assert.Equal(t, sep, closed.Month)
	assert.True(t, closed.Entries[FoodAndDrink].Spent.Equal(d("40")))
	assert.Equal(t, oct, l.Month)
	assert.True(t, l.Entry(FoodAndDrink).Spent.IsZero())
	assert.True(t, l.Entry(FoodAndDrink).Limit.Equal(d("100")), "limits survive rollover")
	assert.NotContains(t, l.Get(), Category("shopping"))

	_, rolled = l.RollOverIfNeeded(sep)
	assert.False(t, rolled, "an earlier month never rolls the ledger back")
	assert.Equal(t, oct, l.Month)
}

func TestLedgerRollOverAdoptsFirstMonth(t *testing.T) {
	l := NewLedger(Month{})
	_, rolled := l.RollOverIfNeeded(Month{Year: 2026, Month: time.March})
	assert.False(t, rolled)
	assert.Equal(t, Month{Year: 2026, Month: time.March}, l.Month)
}

func TestLedgerCategoriesAndTotals(t *testing.T) {
	l := NewLedger(Month{})
	require.NoError(t, l.SetLimits(map[Category]decimal.Decimal{Travel: d("300"), Medical: d("0")}))
	require.NoError(t, l.AddSpend(FoodAndDrink, d("20")))
	require.NoError(t, l.AddSpend("zoo", d("5")))
	require.NoError(t, l.AddSpend("arcade", d("5")))

	assert.Equal(t, []Category{FoodAndDrink, Travel, "arcade", "zoo"}, l.Categories())
	spent, limit := l.Totals()
	assert.True(t, spent.Equal(d("30")))
	assert.True(t, limit.Equal(d("300")))
}
