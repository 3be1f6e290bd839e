// Package accounting holds the cost-basis and portfolio aggregation logic.
// Everything here is pure: no storage, no clock, no logging.
package accounting

import (
	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/shopspring/decimal"
)

// CostBasisStrategy computes the per-unit acquisition cost charged against a
// sale, given the buy lots that qualify for it. ok is false when the lots
// cannot back the sale (none, or zero total quantity).
type CostBasisStrategy interface {
	AverageCost(lots []model.BuyLot) (avgCost decimal.Decimal, ok bool)
}

// WeightedAverage divides the summed consideration of all qualifying buys by
// their summed quantity. Earlier sells do not reduce the pool: a lot already
// (partially) sold still participates with its full quantity. That matches
// the historical behavior of the product and keeps previously stored
// operations reproducible; a lot-consuming FIFO variant would plug in here.
type WeightedAverage struct{}

func (WeightedAverage) AverageCost(lots []model.BuyLot) (decimal.Decimal, bool) {
	var totalQty, totalCost decimal.Decimal
	for _, lot := range lots {
		totalQty = totalQty.Add(lot.Quantity)
		totalCost = totalCost.Add(lot.TotalConsideration)
	}

	if totalQty.Sign() <= 0 {
		return decimal.Decimal{}, false
	}

	return totalCost.Div(totalQty), true
}

// SellFields derives the frozen per-operation fields of a sell. When the
// strategy cannot produce a cost (unbacked sale) both fields come back
// invalid and backed is false; the operation is still recordable.
func SellFields(
	strategy CostBasisStrategy,
	lots []model.BuyLot,
	quantity decimal.Decimal,
	consideration decimal.Decimal,
) (avgCost, realizedPL decimal.NullDecimal, backed bool) {
	avg, ok := strategy.AverageCost(lots)
	if !ok {
		return decimal.NullDecimal{}, decimal.NullDecimal{}, false
	}

	pl := consideration.Sub(quantity.Mul(avg))

	return decimal.NewNullDecimal(avg), decimal.NewNullDecimal(pl), true
}

// BuyFields derives the frozen average cost of a buy: consideration spread
// over the bought quantity.
func BuyFields(quantity, consideration decimal.Decimal) decimal.NullDecimal {
	if quantity.Sign() <= 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(consideration.Div(quantity))
}
