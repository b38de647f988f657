package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAssetPortfolio_SellConsumesOldestFirst(t *testing.T) {
	ap := newAssetPortfolio()
	ap.addLot(newLot(day(1), dec("1"), dec("10"), decimal.Zero))
	ap.addLot(newLot(day(2), dec("2"), dec("5"), decimal.Zero))

	ap.sell(dec("12"), dec("3"), decimal.Zero)

	// 10 units gained 2 each, 2 units gained 1 each.
	assert.True(t, ap.RealizedGain.Equal(dec("22")), "realized gain: %s", ap.RealizedGain)
	assert.True(t, ap.Units.Equal(dec("3")))

	open := ap.OpenLots()
	require.Len(t, open, 1)
	assert.True(t, open[0].UnitPrice.Equal(dec("2")))
	assert.True(t, open[0].Remaining.Equal(dec("3")))
	assert.True(t, ap.UnitCostBasis().Equal(dec("2")))
}

func TestAssetPortfolio_SellDistributesFeesProRata(t *testing.T) {
	ap := newAssetPortfolio()
	ap.addLot(newLot(day(1), dec("10"), dec("6"), decimal.Zero))
	ap.addLot(newLot(day(2), dec("10"), dec("4"), decimal.Zero))

	ap.sell(dec("8"), dec("12"), dec("4"))

	// Gross gain 8*2 = 16, minus the full disposal fee.
	assert.True(t, ap.RealizedGain.Equal(dec("12")), "realized gain: %s", ap.RealizedGain)

	// First lot consumed 6 of 8 units, so it carries 3 of the 4 in fees.
	assert.True(t, ap.Lots[0].Fees.Equal(dec("3")))
	assert.True(t, ap.Lots[1].Fees.Equal(dec("1")))
}

func TestAssetPortfolio_LotsDrainedNotRemoved(t *testing.T) {
	ap := newAssetPortfolio()
	ap.addLot(newLot(day(1), dec("1"), dec("10"), decimal.Zero))

	ap.sell(dec("10"), dec("2"), decimal.Zero)

	require.Len(t, ap.Lots, 1)
	assert.True(t, ap.Lots[0].Remaining.IsZero())
	assert.True(t, ap.Lots[0].Sold().Equal(dec("10")))
	assert.Empty(t, ap.OpenLots())
	assert.False(t, ap.isEmpty())
}

func TestAssetPortfolio_AddLotKeepsChronologicalOrder(t *testing.T) {
	ap := newAssetPortfolio()
	ap.addLot(newLot(day(3), dec("3"), dec("1"), decimal.Zero))
	ap.addLot(newLot(day(1), dec("1"), dec("1"), decimal.Zero))
	ap.addLot(newLot(day(2), dec("2"), dec("1"), decimal.Zero))

	require.Len(t, ap.Lots, 3)
	assert.Equal(t, day(1), ap.Lots[0].AcquiredAt)
	assert.Equal(t, day(2), ap.Lots[1].AcquiredAt)
	assert.Equal(t, day(3), ap.Lots[2].AcquiredAt)
}

func TestAssetPortfolio_SameDayFillsMergeIntoOneLot(t *testing.T) {
	ap := newAssetPortfolio()
	ap.addLot(newLot(day(1), dec("5"), dec("2"), dec("1")))
	ap.addLot(newLot(day(1), dec("5"), dec("3"), dec("1")))

	require.Len(t, ap.Lots, 1)
	assert.True(t, ap.Lots[0].Acquired.Equal(dec("5")))
	assert.True(t, ap.Lots[0].Fees.Equal(dec("2")))

	// A different price on the same day stays separate.
	ap.addLot(newLot(day(1), dec("6"), dec("1"), decimal.Zero))
	assert.Len(t, ap.Lots, 2)
}

func TestAssetPortfolio_RemovePreservesCostBasis(t *testing.T) {
	ap := newAssetPortfolio()
	ap.addLot(newLot(day(1), dec("5"), dec("10"), dec("2")))

	moved := ap.remove(dec("4"), decimal.Zero)

	require.Len(t, moved, 1)
	assert.Equal(t, day(1), moved[0].AcquiredAt)
	assert.True(t, moved[0].UnitPrice.Equal(dec("5")))
	assert.True(t, moved[0].Fees.Equal(dec("0.8")))
	assert.True(t, ap.RealizedGain.IsZero())

	// Basis splits with the units, nothing lost or created.
	total := ap.TotalCostBasis().Add(moved[0].CostBasis())
	assert.True(t, total.Equal(dec("52")), "combined basis: %s", total)
}

func TestAssetPortfolio_AdjustShrinksWithoutGainImpact(t *testing.T) {
	ap := newAssetPortfolio()
	ap.addLot(newLot(day(1), dec("10"), dec("4"), decimal.Zero))
	ap.addLot(newLot(day(2), dec("20"), dec("4"), decimal.Zero))

	ap.adjust(dec("-5"), day(3))

	assert.True(t, ap.Units.Equal(dec("3")))
	assert.True(t, ap.RealizedGain.IsZero())

	// Oldest lot fully absorbed, Acquired reduced in step with Remaining so
	// its cost figures stay internally consistent.
	assert.True(t, ap.Lots[0].Acquired.IsZero())
	assert.True(t, ap.Lots[1].Remaining.Equal(dec("3")))
	assert.True(t, ap.Lots[1].Acquired.Equal(dec("3")))
	assert.True(t, ap.TotalCostBasis().Equal(dec("60")))
}

func TestAssetPortfolio_AdjustGrowsNewestLot(t *testing.T) {
	ap := newAssetPortfolio()
	ap.addLot(newLot(day(1), dec("10"), dec("4"), decimal.Zero))

	ap.adjust(dec("2"), day(5))

	require.Len(t, ap.Lots, 1)
	assert.True(t, ap.Units.Equal(dec("6")))
	assert.True(t, ap.Lots[0].Remaining.Equal(dec("6")))
	assert.True(t, ap.Lots[0].Acquired.Equal(dec("6")))
}

func TestAssetPortfolio_DividendLotRealizesFullProceeds(t *testing.T) {
	ap := newAssetPortfolio()
	ap.addLot(newDividendLot(day(1), dec("3")))

	assert.True(t, ap.TotalCostBasis().IsZero())

	ap.sell(dec("3"), dec("7"), decimal.Zero)
	assert.True(t, ap.RealizedGain.Equal(dec("21")))
}

func TestAssetPortfolio_UnrealizedGain(t *testing.T) {
	ap := newAssetPortfolio()
	ap.addLot(newLot(day(1), dec("10"), dec("5"), decimal.Zero))
	ap.sell(dec("2"), dec("12"), decimal.Zero)

	// 3 units still open, 4 above acquisition price each.
	assert.True(t, ap.UnrealizedGain(dec("14")).Equal(dec("12")))
}
