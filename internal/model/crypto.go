package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CryptoInfo is one price-catalog entry in the reporting currency (BRL).
type CryptoInfo struct {
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Image           string          `json:"image"`
	DisplayName     string          `json:"display_name"`
	CurrentPriceBRL decimal.Decimal `json:"current_price_brl"`
}

// CatalogSnapshot is the whole catalog as refreshed at one instant. It is
// also the on-disk cache format kept for compatibility with the cryptos.json
// produced by earlier revisions of the product.
type CatalogSnapshot struct {
	LastUpdated time.Time    `json:"last_updated_timestamp"`
	Cryptos     []CryptoInfo `json:"cryptos"`
}
