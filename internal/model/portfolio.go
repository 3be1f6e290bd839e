package model

import "github.com/shopspring/decimal"

// AssetPosition is the aggregated state of one asset inside a wallet (or
// across all wallets on the consolidated view).
type AssetPosition struct {
	AssetSymbol        string          `json:"asset_symbol"`
	AssetDisplayName   string          `json:"asset_display_name"`
	AssetIcon          string          `json:"asset_icon"`
	HeldQty            decimal.Decimal `json:"held_qty"`
	RemainingCostBasis decimal.Decimal `json:"remaining_cost_basis"`
	AvgCost            decimal.Decimal `json:"avg_cost"`
	RealizedPL         decimal.Decimal `json:"realized_pl"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	MarketValue        decimal.Decimal `json:"market_value"`
	PositionWeight     decimal.Decimal `json:"position_weight"`
}

type PortfolioSummary struct {
	Positions        []AssetPosition `json:"positions"`
	TotalCostBasis   decimal.Decimal `json:"total_cost_basis"`
	TotalRealizedPL  decimal.Decimal `json:"total_realized_pl"`
	TotalMarketValue decimal.Decimal `json:"total_market_value"`
}

// TaxMonth sums sale proceeds and frozen realized P/L for one month.
type TaxMonth struct {
	Month         int             `json:"month"`
	TotalProceeds decimal.Decimal `json:"total_proceeds"`
	RealizedPL    decimal.Decimal `json:"realized_pl"`
	SalesCount    int             `json:"sales_count"`
}

type TaxReport struct {
	Year          int             `json:"year"`
	Months        []TaxMonth      `json:"months"`
	TotalProceeds decimal.Decimal `json:"total_proceeds"`
	RealizedPL    decimal.Decimal `json:"realized_pl"`
}
