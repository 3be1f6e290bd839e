package accounting

import (
	"testing"
	"time"

	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func buyOp(symbol, qty, cost, at string) model.Operation {
	q, c := dec(qty), dec(cost)
	return model.Operation{
		Kind:               model.OperationBuy,
		AssetSymbol:        symbol,
		AssetDisplayName:   symbol,
		Quantity:           q,
		TotalConsideration: c,
		Timestamp:          ts(at),
		AvgCostAtOp:        BuyFields(q, c),
	}
}

func sellOp(symbol, qty, cost, avg, pl, at string) model.Operation {
	op := model.Operation{
		Kind:               model.OperationSell,
		AssetSymbol:        symbol,
		AssetDisplayName:   symbol,
		Quantity:           dec(qty),
		TotalConsideration: dec(cost),
		Timestamp:          ts(at),
	}
	if avg != "" {
		op.AvgCostAtOp = decimal.NewNullDecimal(dec(avg))
		op.RealizedPLAtOp = decimal.NewNullDecimal(dec(pl))
	}
	return op
}

func transferOp(kind model.OperationKind, symbol, qty, at string) model.Operation {
	return model.Operation{
		Kind:        kind,
		AssetSymbol: symbol,
		Quantity:    dec(qty),
		Timestamp:   ts(at),
	}
}

// Only buys: held quantity equals bought quantity and the remaining cost
// basis equals the gross buy cost.
func TestAggregateBuysOnly(t *testing.T) {
	ops := []model.Operation{
		buyOp("BTC", "0.5", "100000", "2024-01-10 10:00:00"),
		buyOp("BTC", "0.5", "140000", "2024-02-10 10:00:00"),
	}

	summary := Aggregate(ops, PriceMap{"BTC": dec("500000")})

	require.Len(t, summary.Positions, 1)
	pos := summary.Positions[0]
	assert.True(t, pos.HeldQty.Equal(dec("1")), "held %s", pos.HeldQty)
	assert.True(t, pos.RemainingCostBasis.Equal(dec("240000")))
	assert.True(t, pos.AvgCost.Equal(dec("240000")))
	assert.True(t, pos.MarketValue.Equal(dec("500000")))
	assert.True(t, pos.PositionWeight.Equal(dec("1")))
	assert.True(t, summary.TotalCostBasis.Equal(dec("240000")))
	assert.True(t, summary.TotalMarketValue.Equal(dec("500000")))
}

// An asset fully sold (or oversold) disappears from the output.
func TestAggregateZeroedOutAssetOmitted(t *testing.T) {
	ops := []model.Operation{
		buyOp("ETH", "2", "20000", "2024-01-05 09:00:00"),
		sellOp("ETH", "2", "26000", "10000", "6000", "2024-03-05 09:00:00"),
		buyOp("BTC", "1", "300000", "2024-01-06 09:00:00"),
	}

	summary := Aggregate(ops, PriceMap{"BTC": dec("310000"), "ETH": dec("12000")})

	require.Len(t, summary.Positions, 1)
	assert.Equal(t, "BTC", summary.Positions[0].AssetSymbol)
}

// A sell removes its frozen quantity*avg_cost_at_op from the pool, and its
// frozen realized P/L accumulates into the position.
func TestAggregatePartialSell(t *testing.T) {
	ops := []model.Operation{
		buyOp("BTC", "1.0", "300000", "2024-01-10 10:00:00"),
		sellOp("BTC", "0.4", "150000", "300000", "30000", "2024-02-10 10:00:00"),
	}

	summary := Aggregate(ops, PriceMap{"BTC": dec("400000")})

	require.Len(t, summary.Positions, 1)
	pos := summary.Positions[0]
	assert.True(t, pos.HeldQty.Equal(dec("0.6")))
	assert.True(t, pos.RemainingCostBasis.Equal(dec("180000")), "basis %s", pos.RemainingCostBasis)
	assert.True(t, pos.AvgCost.Equal(dec("300000")))
	assert.True(t, pos.RealizedPL.Equal(dec("30000")))
	assert.True(t, pos.MarketValue.Equal(dec("240000")))
}

// Transfers move quantity but carry no cost basis.
func TestAggregateTransfers(t *testing.T) {
	ops := []model.Operation{
		transferOp(model.OperationTransferIn, "SOL", "10", "2024-01-02 08:00:00"),
		transferOp(model.OperationTransferOut, "SOL", "4", "2024-01-20 08:00:00"),
	}

	summary := Aggregate(ops, PriceMap{"SOL": dec("800")})

	require.Len(t, summary.Positions, 1)
	pos := summary.Positions[0]
	assert.True(t, pos.HeldQty.Equal(dec("6")))
	assert.True(t, pos.RemainingCostBasis.IsZero())
	assert.True(t, pos.MarketValue.Equal(dec("4800")))
}

// Symbols missing from the catalog degrade to a zero price instead of
// failing the whole computation.
func TestAggregateMissingPrice(t *testing.T) {
	ops := []model.Operation{buyOp("MEMECOIN", "1000", "500", "2024-01-02 08:00:00")}

	summary := Aggregate(ops, PriceMap{})

	require.Len(t, summary.Positions, 1)
	pos := summary.Positions[0]
	assert.True(t, pos.CurrentPrice.IsZero())
	assert.True(t, pos.MarketValue.IsZero())
	assert.True(t, pos.PositionWeight.IsZero())
	assert.True(t, pos.RemainingCostBasis.Equal(dec("500")))
}

func TestAggregateWeightOrdering(t *testing.T) {
	ops := []model.Operation{
		buyOp("ETH", "1", "10000", "2024-01-02 08:00:00"),
		buyOp("BTC", "1", "300000", "2024-01-03 08:00:00"),
		buyOp("SOL", "10", "5000", "2024-01-04 08:00:00"),
	}

	summary := Aggregate(ops, PriceMap{
		"BTC": dec("300000"),
		"ETH": dec("15000"),
		"SOL": dec("900"),
	})

	require.Len(t, summary.Positions, 3)
	assert.Equal(t, "BTC", summary.Positions[0].AssetSymbol)
	assert.Equal(t, "ETH", summary.Positions[1].AssetSymbol)
	assert.Equal(t, "SOL", summary.Positions[2].AssetSymbol)

	totalWeight := decimal.Zero
	for _, pos := range summary.Positions {
		totalWeight = totalWeight.Add(pos.PositionWeight)
	}
	assert.True(t, totalWeight.Equal(dec("1")), "weights sum to %s", totalWeight)
}

// Labels track the most recent operation, so a rebranded asset shows its
// latest known display name.
func TestAggregateLatestLabelWins(t *testing.T) {
	first := buyOp("MATIC", "10", "50", "2024-01-02 08:00:00")
	first.AssetDisplayName = "MATIC - Polygon"
	second := buyOp("MATIC", "10", "60", "2024-06-02 08:00:00")
	second.AssetDisplayName = "MATIC - Polygon Ecosystem Token"

	// Insertion order must not matter, only timestamps.
	summary := Aggregate([]model.Operation{second, first}, PriceMap{})

	require.Len(t, summary.Positions, 1)
	assert.Equal(t, "MATIC - Polygon Ecosystem Token", summary.Positions[0].AssetDisplayName)
}

// A sell recorded without prior purchases carries no frozen fields; it
// reduces quantity but neither basis nor realized P/L.
func TestAggregateUnbackedSell(t *testing.T) {
	ops := []model.Operation{
		sellOp("BTC", "0.1", "30000", "", "", "2024-01-02 08:00:00"),
		buyOp("BTC", "0.5", "150000", "2024-02-02 08:00:00"),
	}

	summary := Aggregate(ops, PriceMap{"BTC": dec("300000")})

	require.Len(t, summary.Positions, 1)
	pos := summary.Positions[0]
	assert.True(t, pos.HeldQty.Equal(dec("0.4")))
	assert.True(t, pos.RemainingCostBasis.Equal(dec("150000")))
	assert.True(t, pos.RealizedPL.IsZero())
}

func TestAggregateIdempotent(t *testing.T) {
	ops := []model.Operation{
		buyOp("BTC", "1", "300000", "2024-01-10 10:00:00"),
		sellOp("BTC", "0.4", "150000", "300000", "30000", "2024-02-10 10:00:00"),
		buyOp("ETH", "3", "45000", "2024-01-11 10:00:00"),
	}
	prices := PriceMap{"BTC": dec("350000"), "ETH": dec("16000")}

	first := Aggregate(ops, prices)
	second := Aggregate(ops, prices)

	assert.Equal(t, first, second)
}

func TestTaxReport(t *testing.T) {
	ops := []model.Operation{
		buyOp("BTC", "1", "300000", "2024-01-10 10:00:00"),
		sellOp("BTC", "0.2", "70000", "300000", "10000", "2024-03-15 10:00:00"),
		sellOp("BTC", "0.1", "25000", "300000", "-5000", "2024-03-20 10:00:00"),
		sellOp("BTC", "0.1", "40000", "300000", "10000", "2024-07-01 10:00:00"),
		sellOp("BTC", "0.1", "40000", "300000", "10000", "2023-07-01 10:00:00"), // other year
	}

	report := TaxReport(ops, 2024)

	require.Len(t, report.Months, 2)

	march := report.Months[0]
	assert.Equal(t, 3, march.Month)
	assert.Equal(t, 2, march.SalesCount)
	assert.True(t, march.TotalProceeds.Equal(dec("95000")))
	assert.True(t, march.RealizedPL.Equal(dec("5000")))

	july := report.Months[1]
	assert.Equal(t, 7, july.Month)
	assert.True(t, july.TotalProceeds.Equal(dec("40000")))

	assert.True(t, report.TotalProceeds.Equal(dec("135000")))
	assert.True(t, report.RealizedPL.Equal(dec("15000")))
}

func TestTaxReportEmptyYear(t *testing.T) {
	report := TaxReport([]model.Operation{buyOp("BTC", "1", "1", "2024-01-10 10:00:00")}, 2024)

	assert.Empty(t, report.Months)
	assert.True(t, report.TotalProceeds.IsZero())
}
