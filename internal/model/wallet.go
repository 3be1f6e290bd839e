package model

type WalletKind string

const (
	WalletSelfCustody WalletKind = "self_custody"
	WalletExchange    WalletKind = "exchange"
	WalletBank        WalletKind = "bank"
)

func (k WalletKind) Valid() bool {
	switch k {
	case WalletSelfCustody, WalletExchange, WalletBank:
		return true
	}
	return false
}

type Wallet struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Kind        WalletKind `json:"kind"`
	DisplayName string     `json:"display_name"`
	IsForeign   bool       `json:"is_foreign"`
	Info1       string     `json:"info1"`
	Info2       string     `json:"info2"`
}
