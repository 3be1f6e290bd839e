package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           string `db:"user_id"`
	Name         string `db:"name"`
	Phone        string `db:"phone"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
}

type Wallet struct {
	ID          string `db:"wallet_id"`
	OwnerID     string `db:"owner_id"`
	Kind        string `db:"kind"`
	DisplayName string `db:"display_name"`
	IsForeign   bool   `db:"is_foreign"`
	Info1       string `db:"info1"`
	Info2       string `db:"info2"`
}

type Operation struct {
	ID                 string              `db:"operation_id"`
	WalletID           string              `db:"wallet_id"`
	OwnerID            string              `db:"owner_id"`
	Kind               string              `db:"kind"`
	AssetSymbol        string              `db:"asset_symbol"`
	AssetDisplayName   string              `db:"asset_display_name"`
	AssetIcon          string              `db:"asset_icon"`
	Quantity           decimal.Decimal     `db:"quantity"`
	TotalConsideration decimal.Decimal     `db:"total_consideration"`
	OperatedAt         time.Time           `db:"operated_at"`
	AvgCostAtOp        decimal.NullDecimal `db:"avg_cost_at_op"`
	RealizedPLAtOp     decimal.NullDecimal `db:"realized_pl_at_op"`
	FxRate             decimal.NullDecimal `db:"fx_rate"`
}

type BuyLot struct {
	Quantity           decimal.Decimal `db:"quantity"`
	TotalConsideration decimal.Decimal `db:"total_consideration"`
}
