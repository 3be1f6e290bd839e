package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OperationKind string

const (
	OperationBuy         OperationKind = "buy"
	OperationSell        OperationKind = "sell"
	OperationTransferIn  OperationKind = "transfer_in"
	OperationTransferOut OperationKind = "transfer_out"
)

func (k OperationKind) Valid() bool {
	switch k {
	case OperationBuy, OperationSell, OperationTransferIn, OperationTransferOut:
		return true
	}
	return false
}

// Inbound covers the kinds that add to a position, outbound the ones that
// reduce it.
func (k OperationKind) Inbound() bool {
	return k == OperationBuy || k == OperationTransferIn
}

func (k OperationKind) Outbound() bool {
	return k == OperationSell || k == OperationTransferOut
}

// Operation is one ledger record. AvgCostAtOp and RealizedPLAtOp are computed
// once at record time from the ledger state of that moment and are never
// recalculated afterwards, even when earlier operations get deleted.
type Operation struct {
	ID                 string              `json:"id"`
	WalletID           string              `json:"wallet_id"`
	OwnerID            string              `json:"-"`
	Kind               OperationKind       `json:"kind"`
	AssetSymbol        string              `json:"asset_symbol"`
	AssetDisplayName   string              `json:"asset_display_name"`
	AssetIcon          string              `json:"asset_icon"`
	Quantity           decimal.Decimal     `json:"quantity"`
	TotalConsideration decimal.Decimal     `json:"total_consideration"`
	Timestamp          time.Time           `json:"timestamp"`
	AvgCostAtOp        decimal.NullDecimal `json:"avg_cost_at_op"`
	RealizedPLAtOp     decimal.NullDecimal `json:"realized_pl_at_op"`
	FxRate             decimal.NullDecimal `json:"fx_rate"`
}

// BuyLot is the quantity/cost pair a cost-basis strategy works on.
type BuyLot struct {
	Quantity           decimal.Decimal
	TotalConsideration decimal.Decimal
}

type OperationsFilter struct {
	Kinds       []OperationKind
	AssetSymbol string
	From        *time.Time
	To          *time.Time
}
