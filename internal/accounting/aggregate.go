package accounting

import (
	"sort"

	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/shopspring/decimal"
)

// PriceLookup resolves the current price of a symbol in the reporting
// currency. Unknown symbols resolve to zero, never to an error.
type PriceLookup interface {
	Lookup(symbol string) decimal.Decimal
}

// PriceMap is the trivial PriceLookup over an in-memory map.
type PriceMap map[string]decimal.Decimal

func (m PriceMap) Lookup(symbol string) decimal.Decimal {
	return m[symbol]
}

// Aggregate reduces a full operation list into per-asset positions and
// portfolio totals. It is a pure function of its inputs: calling it twice on
// the same data yields identical results.
//
// Per asset: held quantity is inbound (buys, transfers in) minus outbound
// (sells, transfers out); assets whose held quantity dropped to zero or below
// are omitted. The cost basis removed by a sell is its frozen
// quantity*avg_cost_at_op, so the remaining basis stays consistent with what
// each sale was actually charged. Display name and icon come from the most
// recent operation, so rebranded assets show their latest known label.
// Positions come back sorted by weight descending.
func Aggregate(operations []model.Operation, prices PriceLookup) model.PortfolioSummary {
	type assetAcc struct {
		boughtQty     decimal.Decimal
		soldQty       decimal.Decimal
		grossBuyCost  decimal.Decimal
		costBasisSold decimal.Decimal
		realizedPL    decimal.Decimal
		displayName   string
		icon          string
		latestTs      int64
	}

	accs := make(map[string]*assetAcc)
	order := make([]string, 0)

	for _, op := range operations {
		acc, ok := accs[op.AssetSymbol]
		if !ok {
			acc = &assetAcc{latestTs: -1 << 62}
			accs[op.AssetSymbol] = acc
			order = append(order, op.AssetSymbol)
		}

		switch {
		case op.Kind.Inbound():
			acc.boughtQty = acc.boughtQty.Add(op.Quantity)
			if op.Kind == model.OperationBuy {
				acc.grossBuyCost = acc.grossBuyCost.Add(op.TotalConsideration)
			}
		case op.Kind.Outbound():
			acc.soldQty = acc.soldQty.Add(op.Quantity)
			if op.Kind == model.OperationSell {
				if op.AvgCostAtOp.Valid {
					acc.costBasisSold = acc.costBasisSold.Add(op.Quantity.Mul(op.AvgCostAtOp.Decimal))
				}
				if op.RealizedPLAtOp.Valid {
					acc.realizedPL = acc.realizedPL.Add(op.RealizedPLAtOp.Decimal)
				}
			}
		}

		if ts := op.Timestamp.UnixNano(); ts >= acc.latestTs {
			acc.latestTs = ts
			acc.displayName = op.AssetDisplayName
			acc.icon = op.AssetIcon
		}
	}

	summary := model.PortfolioSummary{}

	for _, symbol := range order {
		acc := accs[symbol]

		heldQty := acc.boughtQty.Sub(acc.soldQty)
		if heldQty.Sign() <= 0 {
			continue
		}

		remainingCostBasis := acc.grossBuyCost.Sub(acc.costBasisSold)
		currentPrice := prices.Lookup(symbol)

		position := model.AssetPosition{
			AssetSymbol:        symbol,
			AssetDisplayName:   acc.displayName,
			AssetIcon:          acc.icon,
			HeldQty:            heldQty,
			RemainingCostBasis: remainingCostBasis,
			AvgCost:            remainingCostBasis.Div(heldQty),
			RealizedPL:         acc.realizedPL,
			CurrentPrice:       currentPrice,
			MarketValue:        heldQty.Mul(currentPrice),
		}

		summary.TotalCostBasis = summary.TotalCostBasis.Add(position.RemainingCostBasis)
		summary.TotalRealizedPL = summary.TotalRealizedPL.Add(position.RealizedPL)
		summary.TotalMarketValue = summary.TotalMarketValue.Add(position.MarketValue)
		summary.Positions = append(summary.Positions, position)
	}

	if summary.TotalMarketValue.Sign() > 0 {
		for i := range summary.Positions {
			summary.Positions[i].PositionWeight = summary.Positions[i].MarketValue.Div(summary.TotalMarketValue)
		}
	}

	sort.SliceStable(summary.Positions, func(i, j int) bool {
		a, b := summary.Positions[i], summary.Positions[j]
		if !a.PositionWeight.Equal(b.PositionWeight) {
			return a.PositionWeight.GreaterThan(b.PositionWeight)
		}
		if !a.RemainingCostBasis.Equal(b.RemainingCostBasis) {
			return a.RemainingCostBasis.GreaterThan(b.RemainingCostBasis)
		}
		return a.AssetSymbol < b.AssetSymbol
	})

	return summary
}

// TaxReport rolls the year's sells into per-month proceeds and frozen
// realized P/L totals. Months without sales are omitted.
func TaxReport(operations []model.Operation, year int) model.TaxReport {
	report := model.TaxReport{Year: year}

	months := make(map[int]*model.TaxMonth)

	for _, op := range operations {
		if op.Kind != model.OperationSell || op.Timestamp.Year() != year {
			continue
		}

		m := int(op.Timestamp.Month())
		tm, ok := months[m]
		if !ok {
			tm = &model.TaxMonth{Month: m}
			months[m] = tm
		}

		tm.TotalProceeds = tm.TotalProceeds.Add(op.TotalConsideration)
		tm.SalesCount++
		if op.RealizedPLAtOp.Valid {
			tm.RealizedPL = tm.RealizedPL.Add(op.RealizedPLAtOp.Decimal)
		}

		report.TotalProceeds = report.TotalProceeds.Add(op.TotalConsideration)
		if op.RealizedPLAtOp.Valid {
			report.RealizedPL = report.RealizedPL.Add(op.RealizedPLAtOp.Decimal)
		}
	}

	for m := 1; m <= 12; m++ {
		if tm, ok := months[m]; ok {
			report.Months = append(report.Months, *tm)
		}
	}

	return report
}
