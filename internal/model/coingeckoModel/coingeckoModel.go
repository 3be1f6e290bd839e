package coingeckoModel

// RawMarket is one element of the /coins/markets response. Prices arrive as
// floats, conversion to decimal happens in the api client.
type RawMarket struct {
	ID           string   `json:"id"`
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	Image        string   `json:"image"`
	CurrentPrice *float64 `json:"current_price"`
}
