package accounting

import (
	"testing"

	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lot(qty, cost string) model.BuyLot {
	return model.BuyLot{Quantity: dec(qty), TotalConsideration: dec(cost)}
}

func TestBuyFields(t *testing.T) {
	tests := []struct {
		name          string
		quantity      string
		consideration string
		wantAvg       string
	}{
		{name: "whole unit", quantity: "1", consideration: "300000", wantAvg: "300000"},
		{name: "fractional quantity", quantity: "0.4", consideration: "150000", wantAvg: "375000"},
		{name: "small satoshi buy", quantity: "0.00000001", consideration: "0.01", wantAvg: "1000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuyFields(dec(tt.quantity), dec(tt.consideration))
			require.True(t, got.Valid)
			assert.True(t, got.Decimal.Equal(dec(tt.wantAvg)), "got %s", got.Decimal)
		})
	}
}

func TestBuyFieldsZeroQuantity(t *testing.T) {
	got := BuyFields(decimal.Zero, dec("100"))
	assert.False(t, got.Valid)
}

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name    string
		lots    []model.BuyLot
		wantAvg string
		wantOK  bool
	}{
		{
			name:    "single lot",
			lots:    []model.BuyLot{lot("1", "300000")},
			wantAvg: "300000",
			wantOK:  true,
		},
		{
			name:    "two lots pooled",
			lots:    []model.BuyLot{lot("0.5", "100000"), lot("0.5", "140000")},
			wantAvg: "240000",
			wantOK:  true,
		},
		{
			name:    "uneven lots",
			lots:    []model.BuyLot{lot("2", "100"), lot("6", "300")},
			wantAvg: "50",
			wantOK:  true,
		},
		{
			name:   "no lots",
			lots:   nil,
			wantOK: false,
		},
		{
			name:   "zero total quantity",
			lots:   []model.BuyLot{lot("0", "100")},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, ok := WeightedAverage{}.AverageCost(tt.lots)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, avg.Equal(dec(tt.wantAvg)), "got %s", avg)
			}
		})
	}
}

// Buy 1.0 BTC for 300000, then sell 0.4 for 150000: the sale is charged the
// 300000 average and realizes 30000.
func TestSellFieldsSingleBuy(t *testing.T) {
	avg, pl, backed := SellFields(WeightedAverage{}, []model.BuyLot{lot("1.0", "300000")}, dec("0.4"), dec("150000"))

	require.True(t, backed)
	require.True(t, avg.Valid)
	require.True(t, pl.Valid)
	assert.True(t, avg.Decimal.Equal(dec("300000")), "avg %s", avg.Decimal)
	assert.True(t, pl.Decimal.Equal(dec("30000")), "pl %s", pl.Decimal)
}

// Two buys of 0.5 BTC at 100000 and 140000 pool to a 240000 average; selling
// 0.2 for 60000 realizes 12000.
func TestSellFieldsPooledBuys(t *testing.T) {
	lots := []model.BuyLot{lot("0.5", "100000"), lot("0.5", "140000")}

	avg, pl, backed := SellFields(WeightedAverage{}, lots, dec("0.2"), dec("60000"))

	require.True(t, backed)
	assert.True(t, avg.Decimal.Equal(dec("240000")), "avg %s", avg.Decimal)
	assert.True(t, pl.Decimal.Equal(dec("12000")), "pl %s", pl.Decimal)
}

func TestSellFieldsLoss(t *testing.T) {
	avg, pl, backed := SellFields(WeightedAverage{}, []model.BuyLot{lot("2", "200000")}, dec("1"), dec("80000"))

	require.True(t, backed)
	assert.True(t, avg.Decimal.Equal(dec("100000")))
	assert.True(t, pl.Decimal.Equal(dec("-20000")), "pl %s", pl.Decimal)
}

// A sale with no qualifying buys stays recordable: both derived fields come
// back invalid and the caller surfaces a warning instead of failing.
func TestSellFieldsUnbacked(t *testing.T) {
	avg, pl, backed := SellFields(WeightedAverage{}, nil, dec("1"), dec("50000"))

	assert.False(t, backed)
	assert.False(t, avg.Valid)
	assert.False(t, pl.Valid)
}
